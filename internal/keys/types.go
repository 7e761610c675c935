package keys

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PromptTemplate carries per-key hints rendered into the provider prompt.
type PromptTemplate struct {
	Tone         string `json:"tone,omitempty"`
	MaxLength    int    `json:"max_length,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// IsZero reports whether no hint is set.
func (p PromptTemplate) IsZero() bool {
	return p.Tone == "" && p.MaxLength == 0 && p.Instructions == ""
}

// TranslatableKey identifies a translatable unit of text within a tenant.
type TranslatableKey struct {
	bun.BaseModel `bun:"table:translatable_keys,alias:tk"`

	ID             uuid.UUID       `bun:",pk,type:uuid" json:"id"`
	Scope          string          `bun:"scope,notnull" json:"scope"`
	Key            string          `bun:"key,notnull" json:"key"`
	TenantID       string          `bun:"tenant_id,notnull" json:"tenant_id"`
	Checksum       string          `bun:"checksum,notnull" json:"checksum"`
	IsBlocking     bool            `bun:"is_blocking,notnull,default:false" json:"is_blocking"`
	PromptTemplate *PromptTemplate `bun:"prompt_template,type:jsonb" json:"prompt_template,omitempty"`
	CreatedAt      time.Time       `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time       `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// Label renders the key as scope:key for reports.
func (k *TranslatableKey) Label() string {
	if k == nil {
		return ""
	}
	return k.Scope + ":" + k.Key
}

// Template returns the prompt template or its zero value.
func (k *TranslatableKey) Template() PromptTemplate {
	if k == nil || k.PromptTemplate == nil {
		return PromptTemplate{}
	}
	return *k.PromptTemplate
}

func cloneKey(key *TranslatableKey) *TranslatableKey {
	if key == nil {
		return nil
	}
	cloned := *key
	if key.PromptTemplate != nil {
		tpl := *key.PromptTemplate
		cloned.PromptTemplate = &tpl
	}
	return &cloned
}

func cloneKeySlice(src []*TranslatableKey) []*TranslatableKey {
	if len(src) == 0 {
		return nil
	}
	out := make([]*TranslatableKey, len(src))
	for i, key := range src {
		out[i] = cloneKey(key)
	}
	return out
}
