package probe

import (
	"context"
	"errors"
	"net"
	"testing"
)

type fakeResolver struct {
	ips   []net.IP
	ipErr error
	cname string
	ns    []*net.NS
}

func (f fakeResolver) LookupIP(context.Context, string, string) ([]net.IP, error) {
	return f.ips, f.ipErr
}

func (f fakeResolver) LookupCNAME(_ context.Context, host string) (string, error) {
	if f.cname == "" {
		return host + ".", nil
	}
	return f.cname, nil
}

func (f fakeResolver) LookupNS(context.Context, string) ([]*net.NS, error) {
	if len(f.ns) == 0 {
		return nil, errors.New("no ns")
	}
	return f.ns, nil
}

func TestCheckDNS_InvalidName(t *testing.T) {
	for _, in := range []string{"", "   ", "https://example.com"} {
		if got := CheckDNS(context.Background(), in).Class; got != DNSInvalidName {
			t.Fatalf("CheckDNS(%q) class=%s want %s", in, got, DNSInvalidName)
		}
	}
}

func TestCheckDNS_IPLiteralResolves(t *testing.T) {
	s := CheckDNS(context.Background(), "127.0.0.1")
	if s.Class != DNSResolves || !s.HasAOrAAAA || len(s.IPs) != 1 {
		t.Fatalf("unexpected %+v", s)
	}
}

func TestDiagnose_Classes(t *testing.T) {
	notFound := &net.DNSError{Err: "no such host", Name: "x", IsNotFound: true}
	temporary := &net.DNSError{Err: "server misbehaving", Name: "x", IsTemporary: true}
	ns := []*net.NS{{Host: "ns1.example.net."}}

	cases := []struct {
		name string
		r    fakeResolver
		want string
	}{
		{"resolves", fakeResolver{ips: []net.IP{net.ParseIP("93.184.216.34")}}, DNSResolves},
		{"nxdomain", fakeResolver{ipErr: notFound}, DNSNXDomain},
		{"delegated without address", fakeResolver{ipErr: notFound, ns: ns}, DNSNoARecord},
		{"servfail", fakeResolver{ipErr: temporary}, DNSServfail},
		{"opaque error", fakeResolver{ipErr: errors.New("boom")}, DNSServfail},
		{"empty answer with ns", fakeResolver{ns: ns}, DNSNoARecord},
		{"empty answer", fakeResolver{}, DNSNXDomain},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := DNSDiagnoser{Resolver: c.r}.Diagnose(context.Background(), "example.com")
			if got.Class != c.want {
				t.Fatalf("class=%s want %s (%+v)", got.Class, c.want, got)
			}
		})
	}
}

func TestDiagnose_CNAMEAndNameservers(t *testing.T) {
	r := fakeResolver{
		ips:   []net.IP{net.ParseIP("10.0.0.1")},
		cname: "edge.cdn.example.net.",
		ns:    []*net.NS{{Host: "ns1.example.net."}, {Host: "ns2.example.net."}},
	}
	got := DNSDiagnoser{Resolver: r}.Diagnose(context.Background(), "www.example.com")
	if got.CNAME != "edge.cdn.example.net" {
		t.Fatalf("cname=%q", got.CNAME)
	}
	if !got.HasNS || len(got.Nameservers) != 2 || got.Nameservers[1] != "ns2.example.net" {
		t.Fatalf("nameservers=%v", got.Nameservers)
	}

	self := DNSDiagnoser{Resolver: fakeResolver{ips: r.ips}}.Diagnose(context.Background(), "example.com")
	if self.CNAME != "" {
		t.Fatalf("self cname should be dropped, got %q", self.CNAME)
	}
}

func TestExtractHost(t *testing.T) {
	cases := []struct{ in, want string }{
		{"https://example.com/img.png", "example.com"},
		{"http://example.com:8080/x", "example.com"},
		{"not a url", "not a url"},
	}
	for _, c := range cases {
		if got := ExtractHost(c.in); got != c.want {
			t.Fatalf("ExtractHost(%q)=%q want %q", c.in, got, c.want)
		}
	}
}
