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
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/testutil"
)

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"action":"opened"}`)
	secret := "s3cr3t"

	sha256Mac := hmac.New(sha256.New, []byte(secret))
	sha256Mac.Write(payload)
	sha256Sig := "sha256=" + hex.EncodeToString(sha256Mac.Sum(nil))

	sha1Mac := hmac.New(sha1.New, []byte(secret))
	sha1Mac.Write(payload)
	sha1Sig := "sha1=" + hex.EncodeToString(sha1Mac.Sum(nil))

	testutil.Run(t, "valid sha256 signature", func(t *testutil.T) {
		t.CheckDeepEqual(true, VerifyWebhookSignature(payload, sha256Sig, secret))
	})

	testutil.Run(t, "valid sha1 signature", func(t *testutil.T) {
		t.CheckDeepEqual(true, VerifyWebhookSignature(payload, sha1Sig, secret))
	})

	testutil.Run(t, "wrong secret rejected", func(t *testutil.T) {
		t.CheckDeepEqual(false, VerifyWebhookSignature(payload, sha256Sig, "wrong"))
	})

	testutil.Run(t, "tampered payload rejected", func(t *testutil.T) {
		t.CheckDeepEqual(false, VerifyWebhookSignature([]byte(`{"action":"closed"}`), sha256Sig, secret))
	})

	testutil.Run(t, "unknown prefix rejected", func(t *testutil.T) {
		t.CheckDeepEqual(false, VerifyWebhookSignature(payload, "md5=deadbeef", secret))
	})

	testutil.Run(t, "malformed hex rejected", func(t *testutil.T) {
		t.CheckDeepEqual(false, VerifyWebhookSignature(payload, "sha256=not-hex", secret))
	})
}
