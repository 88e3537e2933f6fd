/*
Copyright 2026 The Lifecycle Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package forge

import (
	"crypto/hmac"
	"crypto/sha1" // #nosec G505 -- legacy x-hub-signature header, §6 requires supporting both
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"
)

// VerifyWebhookSignature checks payload against header using the
// configured secret, supporting both the legacy `x-hub-signature`
// (HMAC-SHA1) and the preferred `x-hub-signature-256` (HMAC-SHA256)
// forms (§6), in constant time.
func VerifyWebhookSignature(payload []byte, header, secret string) bool {
	switch {
	case strings.HasPrefix(header, "sha256="):
		return verifyHMAC(sha256.New, payload, strings.TrimPrefix(header, "sha256="), secret)
	case strings.HasPrefix(header, "sha1="):
		return verifyHMAC(sha1.New, payload, strings.TrimPrefix(header, "sha1="), secret)
	default:
		return false
	}
}

func verifyHMAC(newHash func() hash.Hash, payload []byte, sigHex, secret string) bool {
	mac := hmac.New(newHash, []byte(secret))
	mac.Write(payload)
	expected := mac.Sum(nil)

	got, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}
