package webhooks

import (
	"context"
	"errors"
	"net"
	"testing"
)

func staticResolver(ips ...string) func(context.Context, string) ([]net.IP, error) {
	return func(_ context.Context, _ string) ([]net.IP, error) {
		var out []net.IP
		for _, s := range ips {
			out = append(out, net.ParseIP(s))
		}
		return out, nil
	}
}

func TestEgressPolicy_CheckEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		lookup  func(context.Context, string) ([]net.IP, error)
		wantErr bool
	}{
		{
			name:    "PlainHTTP",
			url:     "http://hooks.example.com/hook",
			wantErr: true,
		},
		{
			name:    "NonHTTPScheme",
			url:     "ftp://hooks.example.com/hook",
			wantErr: true,
		},
		{
			name:    "LoopbackLiteral",
			url:     "https://127.0.0.1/hook",
			wantErr: true,
		},
		{
			name:    "LoopbackLiteralV6",
			url:     "https://[::1]/hook",
			wantErr: true,
		},
		{
			name:    "MetadataAddress",
			url:     "https://169.254.169.254/latest/meta-data/",
			wantErr: true,
		},
		{
			name:    "PrivateLiteral",
			url:     "https://10.1.2.3/hook",
			wantErr: true,
		},
		{
			name:    "UnspecifiedLiteral",
			url:     "https://0.0.0.0/hook",
			wantErr: true,
		},
		{
			name:    "Localhost",
			url:     "https://localhost/hook",
			wantErr: true,
		},
		{
			name:    "LocalhostSubdomain",
			url:     "https://evil.localhost/hook",
			wantErr: true,
		},
		{
			name:    "MetadataHostname",
			url:     "https://metadata.google.internal/computeMetadata/v1/",
			wantErr: true,
		},
		{
			name:    "InternalSuffix",
			url:     "https://db.prod.internal/hook",
			wantErr: true,
		},
		{
			name:    "ResolvesToPrivate",
			url:     "https://rebind.example.com/hook",
			lookup:  staticResolver("192.168.1.5"),
			wantErr: true,
		},
		{
			name:    "ResolvesToMixedPublicPrivate",
			url:     "https://sneaky.example.com/hook",
			lookup:  staticResolver("93.184.216.34", "127.0.0.1"),
			wantErr: true,
		},
		{
			name:    "ResolutionFailure",
			url:     "https://nxdomain.example.com/hook",
			lookup:  func(context.Context, string) ([]net.IP, error) { return nil, errors.New("no such host") },
			wantErr: true,
		},
		{
			name:    "NoHost",
			url:     "https:///hook",
			wantErr: true,
		},
		{
			name:   "PublicHostname",
			url:    "https://hooks.example.com/hook",
			lookup: staticResolver("93.184.216.34"),
		},
		{
			name:   "PublicLiteral",
			url:    "https://93.184.216.34/hook",
			lookup: staticResolver(), // never called for literals
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := &EgressPolicy{LookupIP: tt.lookup}
			err := policy.CheckEndpoint(context.Background(), tt.url)
			if tt.wantErr && err == nil {
				t.Fatalf("CheckEndpoint(%q) = nil, want error", tt.url)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("CheckEndpoint(%q) = %v, want nil", tt.url, err)
			}
		})
	}
}
