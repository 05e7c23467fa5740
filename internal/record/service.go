package record

import (
	"context"
	"fmt"

	"github.com/hackgods/clinic-scheduling/internal/identity"
)

// Service exposes read access to medical records. Records are only written by
// the booking engine when an appointment completes.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListForCaller returns the caller's own records, newest first.
func (s *Service) ListForCaller(ctx context.Context, caller identity.Caller) ([]MedicalRecord, error) {
	if caller.IsZero() {
		return nil, identity.ErrUnauthenticated
	}

	var (
		records []MedicalRecord
		err     error
	)
	switch caller.Role {
	case identity.RolePatient:
		records, err = s.repo.ListByPatient(ctx, caller.OwnerID)
	case identity.RoleDoctor:
		records, err = s.repo.ListByDoctor(ctx, caller.OwnerID)
	default:
		return nil, identity.ErrNotPatient
	}
	if err != nil {
		return nil, fmt.Errorf("list medical records: %w", err)
	}
	return records, nil
}
