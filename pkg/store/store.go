package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ktassist/pkg/domain"
)

// ActivityStore persists login and upload activity.
type ActivityStore interface {
	// RecordLogin keeps one row per email, refreshing its login time.
	RecordLogin(ctx context.Context, email string, at time.Time) error
	// RecordUpload appends one upload row.
	RecordUpload(ctx context.Context, rec domain.UploadRecord) error
	// ListLogins returns every login row, newest first.
	ListLogins(ctx context.Context) ([]domain.LoginRecord, error)
	// ListUploads returns every upload row, newest first.
	ListUploads(ctx context.Context) ([]domain.UploadRecord, error)
}

const memoryScheme = "memory://"

// Open picks a backend from the DSN scheme. "memory://" keeps records in
// process; anything else goes to GORM with opts applied.
func Open(dsn string, opts ...Option) (ActivityStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("database URL required")
	}
	if strings.HasPrefix(dsn, memoryScheme) {
		return NewMemoryStore(), nil
	}
	return NewGormStore(dsn, opts...)
}
