package languages

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Language is a locale the pipeline can translate into.
type Language struct {
	bun.BaseModel `bun:"table:languages,alias:lang"`

	ID        uuid.UUID `bun:",pk,type:uuid" json:"id"`
	Code      string    `bun:"code,notnull" json:"code"`
	Name      string    `bun:"name,notnull" json:"name"`
	IsActive  bool      `bun:"is_active,notnull,default:true" json:"is_active"`
	IsDefault bool      `bun:"is_default,notnull,default:false" json:"is_default"`
	Priority  int       `bun:"priority,notnull,default:0" json:"priority"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

func cloneLanguage(lang *Language) *Language {
	if lang == nil {
		return nil
	}
	cloned := *lang
	return &cloned
}

func cloneLanguageSlice(src []*Language) []*Language {
	if len(src) == 0 {
		return nil
	}
	out := make([]*Language, len(src))
	for i, lang := range src {
		out[i] = cloneLanguage(lang)
	}
	return out
}
