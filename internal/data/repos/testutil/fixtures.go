package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/wastecollect-backend/internal/domain/billing"
	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/domain/municipality"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"gorm.io/gorm"
)

func SeedMunicipality(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *municipality.Municipality {
	tb.Helper()
	m := &municipality.Municipality{
		Name:        name + "-" + uuid.NewString()[:8],
		Province:    "Gauteng",
		Country:     "ZA",
		Population:  100000,
		WasteBudget: 1000000,
		Enabled:     true,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed municipality: %v", err)
	}
	return m
}

func seedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, u *user.User) *user.User {
	tb.Helper()
	if u.Email == "" {
		u.Email = uuid.NewString() + "@example.com"
	}
	if u.Name == "" {
		u.Name = string(u.Role)
	}
	u.PasswordHash = "pw"
	u.Enabled = true
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedHousehold(tb testing.TB, ctx context.Context, tx *gorm.DB, municipalityID uuid.UUID) *user.User {
	tb.Helper()
	return seedUser(tb, ctx, tx, &user.User{
		Role:      user.RoleHousehold,
		Address:   "1 Main Rd",
		Phone:     "0800000000",
		Household: &user.HouseholdProfile{MunicipalityID: municipalityID, HouseholdSize: 3},
	})
}

func SeedCollector(tb testing.TB, ctx context.Context, tx *gorm.DB, municipalityID uuid.UUID) *user.User {
	tb.Helper()
	return seedUser(tb, ctx, tx, &user.User{
		Role:      user.RoleCollector,
		Collector: &user.CollectorProfile{MunicipalityID: municipalityID, VehicleType: "truck", Available: true},
	})
}

func SeedManager(tb testing.TB, ctx context.Context, tx *gorm.DB, municipalityID uuid.UUID) *user.User {
	tb.Helper()
	return seedUser(tb, ctx, tx, &user.User{
		Role:    user.RoleManager,
		Manager: &user.ManagerProfile{MunicipalityID: municipalityID, Title: "manager"},
	})
}

func SeedAdmin(tb testing.TB, ctx context.Context, tx *gorm.DB) *user.User {
	tb.Helper()
	return seedUser(tb, ctx, tx, &user.User{
		Role:  user.RoleAdmin,
		Admin: &user.AdminProfile{AccessLevel: 1},
	})
}

// SeedRequest inserts a request owned by household in the given status.
// A collector is attached for any status past PENDING.
func SeedRequest(tb testing.TB, ctx context.Context, tx *gorm.DB, household *user.User, collectorID *uuid.UUID, status collection.Status) *collection.ServiceRequest {
	tb.Helper()
	munID, _ := household.MunicipalityID()
	r := &collection.ServiceRequest{
		Description:     "garden refuse",
		WasteType:       collection.WasteGarden,
		EstimatedVolume: 4,
		Status:          status,
		Address:         household.Address,
		Phone:           household.Phone,
		HouseholdID:     household.ID,
		CollectorID:     collectorID,
		MunicipalityID:  munID,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed request: %v", err)
	}
	return r
}

func SeedCollection(tb testing.TB, ctx context.Context, tx *gorm.DB, r *collection.ServiceRequest, at time.Time, weight float64) *collection.WasteCollection {
	tb.Helper()
	w := &collection.WasteCollection{
		ServiceRequestID: r.ID,
		CollectorID:      *r.CollectorID,
		HouseholdID:      r.HouseholdID,
		MunicipalityID:   r.MunicipalityID,
		WasteType:        r.WasteType,
		CollectionDate:   at,
		ActualWeight:     weight,
		Address:          r.Address,
		Status:           collection.StatusCompleted,
	}
	if err := tx.WithContext(ctx).Create(w).Error; err != nil {
		tb.Fatalf("seed collection: %v", err)
	}
	return w
}

func SeedRating(tb testing.TB, ctx context.Context, tx *gorm.DB, r *collection.ServiceRequest, rating int) *collection.CollectorRating {
	tb.Helper()
	cr := &collection.CollectorRating{
		ServiceRequestID: r.ID,
		CollectorID:      *r.CollectorID,
		HouseholdID:      r.HouseholdID,
		MunicipalityID:   r.MunicipalityID,
		Rating:           rating,
		RatingDate:       time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(cr).Error; err != nil {
		tb.Fatalf("seed rating: %v", err)
	}
	return cr
}

func SeedPayment(tb testing.TB, ctx context.Context, tx *gorm.DB, r *collection.ServiceRequest, amount float64, status billing.Status) *billing.Payment {
	tb.Helper()
	p := &billing.Payment{
		Amount:           amount,
		Method:           billing.MethodCash,
		Status:           status,
		PaymentDate:      time.Now().UTC(),
		TransactionRef:   "TXN-" + uuid.NewString(),
		HouseholdID:      r.HouseholdID,
		ServiceRequestID: r.ID,
		CollectorID:      r.CollectorID,
		MunicipalityID:   r.MunicipalityID,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed payment: %v", err)
	}
	return p
}
