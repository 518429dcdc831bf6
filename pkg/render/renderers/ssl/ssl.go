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
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/probelab/probectl/pkg/measurement"
	"github.com/probelab/probectl/pkg/render"
)

// Renderer decodes the PEM certificates carried in TLS measurement results
// and prints subject, issuer, validity, and SHA256 fingerprint per
// certificate.
type Renderer struct{}

func init() {
	render.Register("ssl", func() render.Renderer { return &Renderer{} })
}

func (r *Renderer) Kinds() []measurement.Kind {
	return []measurement.Kind{measurement.Sslcert}
}

func (r *Renderer) OnResult(res *measurement.Result, probe *measurement.ProbeInfo) string {
	fields := res.Fields()

	var b strings.Builder
	rt, _ := render.Num(fields["rt"])
	ver, _ := render.Str(fields["ver"])
	fmt.Fprintf(&b, "probe #%d: TLS %s handshake in %.2f ms\n", res.ProbeID, ver, rt)

	certs, ok := render.Slice(fields["cert"])
	if !ok || len(certs) == 0 {
		if alert, ok := render.Map(fields["alert"]); ok {
			desc, _ := render.Num(alert["description"])
			fmt.Fprintf(&b, "  handshake refused (alert %d)\n", int(desc))
		} else {
			b.WriteString("  no certificates returned\n")
		}
		return b.String()
	}

	for _, c := range certs {
		pemData, ok := render.Str(c)
		if !ok {
			continue
		}
		b.WriteString(renderCert(pemData))
	}
	return b.String()
}

func renderCert(pemData string) string {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return "  unparseable certificate\n"
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return "  unparseable certificate\n"
	}

	fingerprint := sha256.Sum256(cert.Raw)
	hexParts := make([]string, len(fingerprint))
	for i, by := range fingerprint {
		hexParts[i] = fmt.Sprintf("%02X", by)
	}

	return fmt.Sprintf(
		"  subject: %s\n  issuer:  %s\n  valid:   %s to %s\n  sha256:  %s\n",
		cert.Subject.String(),
		cert.Issuer.String(),
		cert.NotBefore.Format("2006-01-02"),
		cert.NotAfter.Format("2006-01-02"),
		strings.Join(hexParts, ":"),
	)
}
