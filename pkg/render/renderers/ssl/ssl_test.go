// Copyright 2024 Probelab
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ssl

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/probectl/pkg/measurement"
)

func selfSignedPEM(t *testing.T, commonName string) string {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

func renderResult(t *testing.T, raw string) string {
	t.Helper()
	res, err := measurement.DecodeResult([]byte(raw))
	require.NoError(t, err)
	return (&Renderer{}).OnResult(res, nil)
}

func TestOnResultCertificateChain(t *testing.T) {
	certPEM := selfSignedPEM(t, "example.com")
	record := map[string]any{
		"msm_id": 1, "prb_id": 17, "type": "sslcert",
		"rt": 45.2, "ver": "1.3",
		"cert": []string{certPEM},
	}
	raw, err := json.Marshal(record)
	require.NoError(t, err)

	out := renderResult(t, string(raw))
	assert.Contains(t, out, "probe #17: TLS 1.3 handshake in 45.20 ms")
	assert.Contains(t, out, "subject: CN=example.com")
	assert.Contains(t, out, "issuer:  CN=example.com")
	assert.Contains(t, out, "valid:   2024-01-01 to 2025-01-01")

	var sha256Line string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "sha256:") {
			sha256Line = line
		}
	}
	require.NotEmpty(t, sha256Line)
	// 32 bytes, colon separated, upper-case hex.
	digest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(sha256Line), "sha256:"))
	assert.Len(t, strings.Split(digest, ":"), 32)
	assert.Equal(t, strings.ToUpper(digest), digest)
}

func TestOnResultAlert(t *testing.T) {
	out := renderResult(t, `{
		"msm_id": 1, "prb_id": 17, "type": "sslcert",
		"rt": 12.0, "ver": "1.2",
		"alert": {"level": 2, "description": 40}
	}`)
	assert.Contains(t, out, "handshake refused (alert 40)")
}

func TestOnResultGarbageCert(t *testing.T) {
	out := renderResult(t, `{
		"msm_id": 1, "prb_id": 17, "type": "sslcert",
		"rt": 12.0, "ver": "1.2",
		"cert": ["not a pem blob"]
	}`)
	assert.Contains(t, out, "unparseable certificate")
}
