package translations

import (
	"time"

	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	AlertSEOLength           = "seo_length"
	AlertPlaceholderMismatch = "placeholder_mismatch"
)

// Alert is a quality warning attached to a stored translation.
type Alert struct {
	Type    string `json:"type"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Translation is the live text of a key in one language for one tenant.
// Scope is copied from the owning key so vectorization sweeps can filter
// without a join.
type Translation struct {
	bun.BaseModel `bun:"table:translations,alias:tr"`

	ID             uuid.UUID     `bun:",pk,type:uuid" json:"id"`
	KeyID          uuid.UUID     `bun:"key_id,notnull,type:uuid" json:"key_id"`
	Scope          string        `bun:"scope,notnull" json:"scope"`
	Language       string        `bun:"language,notnull" json:"language"`
	TenantID       string        `bun:"tenant_id,notnull" json:"tenant_id"`
	Text           string        `bun:"text,notnull" json:"text"`
	Version        int           `bun:"version,notnull,default:1" json:"version"`
	Origin         domain.Origin `bun:"origin,notnull" json:"origin"`
	SourceChecksum string        `bun:"source_checksum,notnull" json:"source_checksum"`
	Alerts         []Alert       `bun:"alerts,type:jsonb" json:"alerts,omitempty"`
	Embedding      []float32     `bun:"embedding,type:jsonb,nullzero" json:"embedding,omitempty"`
	Reviewer       string        `bun:"reviewer" json:"reviewer,omitempty"`
	CreatedAt      time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

func cloneTranslation(tr *Translation) *Translation {
	if tr == nil {
		return nil
	}
	cloned := *tr
	if tr.Alerts != nil {
		cloned.Alerts = append([]Alert(nil), tr.Alerts...)
	}
	if tr.Embedding != nil {
		cloned.Embedding = append([]float32(nil), tr.Embedding...)
	}
	return &cloned
}

func cloneTranslationSlice(src []*Translation) []*Translation {
	if len(src) == 0 {
		return nil
	}
	out := make([]*Translation, len(src))
	for i, tr := range src {
		out[i] = cloneTranslation(tr)
	}
	return out
}
