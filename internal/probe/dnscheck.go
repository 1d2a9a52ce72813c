package probe

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// DNS classes reported by CheckDNS.
const (
	DNSResolves    = "RESOLVES"
	DNSNXDomain    = "NXDOMAIN"
	DNSNoARecord   = "NO_A_RECORD"
	DNSServfail    = "SERVFAIL_or_TIMEOUT"
	DNSInvalidName = "INVALID_NAME"
)

// DNSStatus explains why a host might be unreachable. It is only used for
// diagnostics and never changes whether a probe counts as online.
type DNSStatus struct {
	Domain        string
	HasAOrAAAA    bool
	IPs           []net.IP
	CNAME         string
	HasNS         bool
	Nameservers   []string
	Class         string
	ResolverError string
}

// Resolver is the subset of *net.Resolver the diagnosis needs.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
}

type DNSDiagnoser struct {
	Resolver Resolver
	Timeout  time.Duration
}

var defaultDiagnoser = DNSDiagnoser{Resolver: net.DefaultResolver, Timeout: 3 * time.Second}

// CheckDNS diagnoses host with the system resolver.
func CheckDNS(ctx context.Context, host string) DNSStatus {
	return defaultDiagnoser.Diagnose(ctx, host)
}

func (d DNSDiagnoser) Diagnose(ctx context.Context, host string) DNSStatus {
	st := DNSStatus{Domain: strings.TrimSpace(host)}
	if st.Domain == "" || strings.Contains(st.Domain, "://") {
		st.Class = DNSInvalidName
		return st
	}
	if ip := net.ParseIP(st.Domain); ip != nil {
		st.HasAOrAAAA, st.IPs, st.Class = true, []net.IP{ip}, DNSResolves
		return st
	}

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	ips, ipErr := d.Resolver.LookupIP(ctx, "ip", st.Domain)
	if ipErr != nil {
		st.ResolverError = ipErr.Error()
	} else if len(ips) > 0 {
		st.HasAOrAAAA, st.IPs = true, ips
	}

	// a CNAME equal to the name itself means there is none
	if cname, err := d.Resolver.LookupCNAME(ctx, st.Domain); err == nil {
		if c := strings.TrimSuffix(cname, "."); !strings.EqualFold(c, st.Domain) {
			st.CNAME = c
		}
	}
	if ns, err := d.Resolver.LookupNS(ctx, st.Domain); err == nil {
		for _, n := range ns {
			st.Nameservers = append(st.Nameservers, strings.TrimSuffix(n.Host, "."))
		}
		st.HasNS = len(st.Nameservers) > 0
	}

	st.Class = classifyDNS(st, ipErr)
	return st
}

// classifyDNS prefers the address lookup's own verdict. A name with
// delegated nameservers but no address is NO_A_RECORD even when the
// address lookup said not found.
func classifyDNS(st DNSStatus, ipErr error) string {
	if st.HasAOrAAAA {
		return DNSResolves
	}
	var de *net.DNSError
	if errors.As(ipErr, &de) {
		switch {
		case de.IsNotFound && st.HasNS:
			return DNSNoARecord
		case de.IsNotFound:
			return DNSNXDomain
		case de.IsTemporary || de.Timeout():
			return DNSServfail
		}
	}
	switch {
	case st.HasNS:
		return DNSNoARecord
	case ipErr != nil:
		return DNSServfail
	default:
		return DNSNXDomain
	}
}
