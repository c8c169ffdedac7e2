// Package avatar derives non-authoritative display avatars from email
// addresses via Gravatar.
package avatar

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// URL returns the Gravatar URL for email: 200px, PG-rated, with the
// "mystery man" fallback for addresses without a Gravatar. The address is
// trimmed and lowercased first, per the Gravatar protocol.
func URL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?s=200&r=pg&d=mm", hex.EncodeToString(sum[:]))
}
