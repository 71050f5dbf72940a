package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"storefront/backend/internal/db"
	"storefront/backend/internal/db/migrate"
	"storefront/backend/internal/pending/domain"
)

const testPhone = "+79991234567"

func sampleData(email string) domain.UserData {
	return domain.UserData{Email: email, PasswordHash: "$2a$04$hash", FirstName: "Anna", LastName: "Petrova"}
}

// runContract exercises the behaviour every Repository implementation must share.
func runContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("put then find", func(t *testing.T) {
		repo := newRepo(t)
		id, err := repo.Put(ctx, testPhone, "tok-find", sampleData("find@b.com"))
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		if id == "" {
			t.Fatal("Put returned empty id")
		}
		reg, err := repo.FindByPhoneAndToken(ctx, testPhone, "tok-find")
		if err != nil || reg == nil {
			t.Fatalf("FindByPhoneAndToken = %v, %v", reg, err)
		}
		if reg.ID != id || reg.Verified || reg.UserData.Email != "find@b.com" || reg.UserData.PasswordHash == "" {
			t.Errorf("unexpected record %+v", reg)
		}
		if reg, _ := repo.FindByToken(ctx, "tok-find"); reg == nil || reg.Phone != testPhone {
			t.Errorf("FindByToken = %+v", reg)
		}
	})

	t.Run("missing is nil without error", func(t *testing.T) {
		repo := newRepo(t)
		if reg, err := repo.FindByToken(ctx, "never-issued"); reg != nil || err != nil {
			t.Errorf("FindByToken = %v, %v; want nil, nil", reg, err)
		}
		if reg, err := repo.FindByPhoneAndToken(ctx, testPhone, "never-issued"); reg != nil || err != nil {
			t.Errorf("FindByPhoneAndToken = %v, %v; want nil, nil", reg, err)
		}
		if ok, err := repo.MarkVerified(ctx, testPhone, "never-issued"); ok || err != nil {
			t.Errorf("MarkVerified = %v, %v; want false, nil", ok, err)
		}
		if ok, err := repo.Remove(ctx, testPhone, "never-issued"); ok || err != nil {
			t.Errorf("Remove = %v, %v; want false, nil", ok, err)
		}
	})

	t.Run("put supersedes unverified rows for phone", func(t *testing.T) {
		repo := newRepo(t)
		phone := "+79990000001"
		if _, err := repo.Put(ctx, phone, "tok-old", sampleData("x@b.com")); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if _, err := repo.Put(ctx, phone, "tok-new", sampleData("x@b.com")); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if reg, _ := repo.FindByToken(ctx, "tok-old"); reg != nil {
			t.Error("older unverified registration should be superseded")
		}
		if reg, _ := repo.FindByToken(ctx, "tok-new"); reg == nil {
			t.Error("newer registration should remain")
		}
	})

	t.Run("put keeps verified rows", func(t *testing.T) {
		repo := newRepo(t)
		phone := "+79990000002"
		repo.Put(ctx, phone, "tok-verified", sampleData("v@b.com"))
		if ok, _ := repo.MarkVerified(ctx, phone, "tok-verified"); !ok {
			t.Fatal("MarkVerified should succeed")
		}
		repo.Put(ctx, phone, "tok-next", sampleData("v@b.com"))
		if reg, _ := repo.FindByToken(ctx, "tok-verified"); reg == nil || !reg.Verified {
			t.Error("verified registration must survive a later Put")
		}
	})

	t.Run("mark verified requires exact phone and token", func(t *testing.T) {
		repo := newRepo(t)
		phone := "+79990000003"
		repo.Put(ctx, phone, "tok-exact", sampleData("e@b.com"))
		if ok, _ := repo.MarkVerified(ctx, "+79990000004", "tok-exact"); ok {
			t.Error("MarkVerified with wrong phone must fail")
		}
		if ok, _ := repo.MarkVerified(ctx, phone, "tok-exact"); !ok {
			t.Fatal("MarkVerified with matching phone should succeed")
		}
		if ok, _ := repo.MarkVerified(ctx, phone, "tok-exact"); ok {
			t.Error("second MarkVerified should report false")
		}
		reg, _ := repo.FindByPhoneAndToken(ctx, phone, "tok-exact")
		if reg == nil || !reg.Verified || reg.VerifiedAt == nil {
			t.Errorf("record after verify = %+v", reg)
		}
	})

	t.Run("concurrent mark verified has one winner", func(t *testing.T) {
		repo := newRepo(t)
		phone := "+79990000005"
		repo.Put(ctx, phone, "tok-race", sampleData("r@b.com"))
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := repo.MarkVerified(ctx, phone, "tok-race")
				if err != nil {
					t.Errorf("MarkVerified: %v", err)
				}
				if ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		if wins != 1 {
			t.Errorf("wins = %d, want 1", wins)
		}
	})

	t.Run("remove", func(t *testing.T) {
		repo := newRepo(t)
		phone := "+79990000006"
		repo.Put(ctx, phone, "tok-remove", sampleData("rm@b.com"))
		if ok, _ := repo.Remove(ctx, "+79990000007", "tok-remove"); ok {
			t.Error("Remove with wrong phone must not delete")
		}
		if ok, err := repo.Remove(ctx, phone, "tok-remove"); !ok || err != nil {
			t.Fatalf("Remove = %v, %v", ok, err)
		}
		if reg, _ := repo.FindByToken(ctx, "tok-remove"); reg != nil {
			t.Error("record should be gone after Remove")
		}
	})
}

func TestMemoryRepository_Contract(t *testing.T) {
	runContract(t, func(t *testing.T) Repository { return NewMemoryRepository(nil) })
}

func TestMemoryRepository_PurgeOlderThan(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository(func() time.Time { return now })

	repo.Put(ctx, "+79990000010", "tok-old-unverified", sampleData("a@b.com"))
	repo.Put(ctx, "+79990000011", "tok-old-verified", sampleData("b@b.com"))
	repo.MarkVerified(ctx, "+79990000011", "tok-old-verified")

	now = now.Add(25 * time.Hour)
	repo.Put(ctx, "+79990000012", "tok-fresh", sampleData("c@b.com"))

	n, err := repo.PurgeOlderThan(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeOlderThan: %v", err)
	}
	if n != 2 {
		t.Errorf("purged = %d, want 2 (verified state does not matter)", n)
	}
	if reg, _ := repo.FindByToken(ctx, "tok-fresh"); reg == nil {
		t.Error("fresh registration should survive the purge")
	}
}

func TestMemoryRepository_CountByPhone(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(nil)
	for _, tok := range []string{"t1", "t2", "t3"} {
		repo.Put(ctx, testPhone, tok, sampleData("a@b.com"))
	}
	total, unverified := repo.CountByPhone(testPhone)
	if total != 1 || unverified != 1 {
		t.Errorf("CountByPhone = %d/%d, want 1/1", total, unverified)
	}
}

func TestPostgresRepository_Contract(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	if err := migrate.Run(dsn, "up"); err != nil {
		t.Skipf("migrate up failed (expected in test environment): %v", err)
	}
	conn, err := db.Open(dsn)
	if err != nil {
		t.Skipf("Database connection failed (expected in test environment): %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	runContract(t, func(t *testing.T) Repository {
		if _, err := conn.Exec(`DELETE FROM pending_registrations`); err != nil {
			t.Fatalf("reset table: %v", err)
		}
		return NewPostgresRepository(conn)
	})
}
