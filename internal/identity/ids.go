// Package identity derives stable row identifiers from natural keys, so a
// re-run of the same capture or sync lands on the same records.
package identity

import (
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

const namespace = "locsync"

// kind separates the ID spaces so equal natural keys of different entities
// never collide.
type kind string

const (
	kindLanguage    kind = "language"
	kindKey         kind = "key"
	kindTranslation kind = "translation"
)

func (k kind) id(parts ...string) uuid.UUID {
	segments := make([]string, 0, len(parts)+2)
	segments = append(segments, namespace, string(k))
	for _, part := range parts {
		segments = append(segments, strings.TrimSpace(part))
	}
	return UUID(strings.Join(segments, ":"))
}

// UUID hashes key into a UUID with go-hashid. Blank keys map to uuid.Nil.
func UUID(key string) uuid.UUID {
	key = strings.TrimSpace(key)
	if key == "" {
		return uuid.Nil
	}
	id, err := hashid.NewUUID(key, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err == nil && id != uuid.Nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key))
}

func LanguageUUID(code string) uuid.UUID {
	return kindLanguage.id(strings.ToLower(code))
}

// KeyUUID identifies a translation key within a tenant scope.
func KeyUUID(tenantID, scope, key string) uuid.UUID {
	return kindKey.id(tenantID, scope, key)
}

// TranslationUUID identifies the single live translation of a key in a language.
func TranslationUUID(keyID uuid.UUID, language, tenantID string) uuid.UUID {
	return kindTranslation.id(keyID.String(), strings.ToLower(language), tenantID)
}
