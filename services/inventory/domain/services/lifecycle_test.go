package services

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	domain "github.com/ghuser/hemotrack/services/inventory/domain"
	"github.com/ghuser/hemotrack/services/inventory/domain/models"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    models.Status
		to      models.Status
		kind    ActorKind
		reason  string
		wantErr error
	}{
		{"available to used", models.StatusAvailable, models.StatusUsed, ActorAdmin, "", nil},
		{"available to quarantined with reason", models.StatusAvailable, models.StatusQuarantined, ActorAdmin, "failed screening", nil},
		{"available to quarantined without reason", models.StatusAvailable, models.StatusQuarantined, ActorAdmin, "", domain.ErrValidation},
		{"available to expired by admin", models.StatusAvailable, models.StatusExpired, ActorAdmin, "", domain.ErrIllegalTransition},
		{"available to expired by system", models.StatusAvailable, models.StatusExpired, ActorSystem, "", nil},
		{"available to deleted with reason", models.StatusAvailable, models.StatusDeleted, ActorAdmin, "duplicate", nil},
		{"available to deleted without reason", models.StatusAvailable, models.StatusDeleted, ActorAdmin, "", domain.ErrValidation},
		{"quarantined back to available with reason", models.StatusQuarantined, models.StatusAvailable, ActorAdmin, "screening cleared", nil},
		{"quarantined back to available without reason", models.StatusQuarantined, models.StatusAvailable, ActorAdmin, "", domain.ErrValidation},
		{"quarantined to expired by system", models.StatusQuarantined, models.StatusExpired, ActorSystem, "", nil},
		{"quarantined to used", models.StatusQuarantined, models.StatusUsed, ActorAdmin, "", domain.ErrIllegalTransition},
		{"used to deleted", models.StatusUsed, models.StatusDeleted, ActorAdmin, "bad record", nil},
		{"used to available", models.StatusUsed, models.StatusAvailable, ActorAdmin, "", domain.ErrIllegalTransition},
		{"expired to available", models.StatusExpired, models.StatusAvailable, ActorAdmin, "looks fine", domain.ErrIllegalTransition},
		{"expired to used", models.StatusExpired, models.StatusUsed, ActorAdmin, "", domain.ErrIllegalTransition},
		{"expired to deleted", models.StatusExpired, models.StatusDeleted, ActorAdmin, "cleanup", nil},
		{"deleted is terminal", models.StatusDeleted, models.StatusAvailable, ActorAdmin, "oops", domain.ErrIllegalTransition},
		{"no self transition", models.StatusAvailable, models.StatusAvailable, ActorAdmin, "", domain.ErrIllegalTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to, tt.kind, tt.reason)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected legal transition, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestExpiredNeverReentersCirculation walks random legal transition sequences
// and checks that once a unit is expired (or deleted) it can never become
// available or used again.
func TestExpiredNeverReentersCirculation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	targets := []models.Status{
		models.StatusAvailable, models.StatusUsed, models.StatusExpired,
		models.StatusQuarantined, models.StatusDeleted,
	}

	for seq := 0; seq < 200; seq++ {
		status := models.StatusAvailable
		sawTerminal := false
		for step := 0; step < 20; step++ {
			to := targets[rng.Intn(len(targets))]
			kind := ActorAdmin
			if to == models.StatusExpired {
				kind = ActorSystem
			}
			if err := ValidateTransition(status, to, kind, "test reason"); err != nil {
				continue
			}
			status = to
			if status == models.StatusExpired || status == models.StatusDeleted {
				sawTerminal = true
			}
			if sawTerminal && (status == models.StatusAvailable || status == models.StatusUsed) {
				t.Fatalf("sequence %d: unit re-entered circulation as %s after expiry/deletion", seq, status)
			}
		}
	}
}

func TestValidateCreation(t *testing.T) {
	today := date(2024, 1, 15)
	donor := func(status models.DonorStatus) *models.Donor {
		return &models.Donor{ID: uuid.New(), ReferenceCode: "D-1001", FullName: "Jane Roe", Status: status}
	}

	t.Run("approved donor, past collection date", func(t *testing.T) {
		if err := ValidateCreation(donor(models.DonorApproved), date(2024, 1, 10), today); err != nil {
			t.Fatalf("expected valid creation, got %v", err)
		}
	})
	t.Run("served donor is eligible", func(t *testing.T) {
		if err := ValidateCreation(donor(models.DonorServed), today, today); err != nil {
			t.Fatalf("expected valid creation, got %v", err)
		}
	})
	t.Run("pending donor", func(t *testing.T) {
		err := ValidateCreation(donor(models.DonorPending), today, today)
		if !errors.Is(err, domain.ErrDonorNotEligible) {
			t.Fatalf("expected ErrDonorNotEligible, got %v", err)
		}
	})
	t.Run("rejected donor", func(t *testing.T) {
		err := ValidateCreation(donor(models.DonorRejected), today, today)
		if !errors.Is(err, domain.ErrDonorNotEligible) {
			t.Fatalf("expected ErrDonorNotEligible, got %v", err)
		}
	})
	t.Run("future collection date", func(t *testing.T) {
		err := ValidateCreation(donor(models.DonorApproved), date(2024, 1, 16), today)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
	t.Run("missing donor", func(t *testing.T) {
		if err := ValidateCreation(nil, today, today); !errors.Is(err, domain.ErrDonorNotFound) {
			t.Fatalf("expected ErrDonorNotFound, got %v", err)
		}
	})
	t.Run("zero collection date", func(t *testing.T) {
		err := ValidateCreation(donor(models.DonorApproved), time.Time{}, today)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
}
