package notify

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/hamed0406/siteupbot/internal/domain"
)

func rec(online bool) domain.StatusRecord { return domain.StatusRecord{Online: online} }

func recp(online bool) *domain.StatusRecord {
	r := rec(online)
	return &r
}

func TestShouldNotify(t *testing.T) {
	cases := []struct {
		name      string
		prev      *domain.StatusRecord
		cur       domain.StatusRecord
		failures  int
		threshold int
		want      bool
	}{
		{"first online", nil, rec(true), 0, 3, true},
		{"first offline", nil, rec(false), 1, 3, true},
		{"went down", recp(true), rec(false), 1, 3, true},
		{"recovered", recp(false), rec(true), 0, 3, true},
		{"still up", recp(true), rec(true), 0, 3, false},
		{"down below threshold", recp(false), rec(false), 2, 3, false},
		{"down at threshold", recp(false), rec(false), 3, 3, true},
		{"down past threshold", recp(false), rec(false), 7, 3, true},
		{"threshold one", recp(false), rec(false), 1, 1, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ShouldNotify(c.prev, c.cur, c.failures, c.threshold); got != c.want {
				t.Fatalf("ShouldNotify = %v, want %v", got, c.want)
			}
		})
	}
}

// Drives the rule through MonitorState exactly the way the monitor does
// and checks the observable notification pattern.
func TestShouldNotify_Properties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	run := func(obs []bool, threshold int) []bool {
		var st domain.MonitorState
		out := make([]bool, len(obs))
		for i, online := range obs {
			r := rec(online)
			st = st.Observe(r)
			out[i] = ShouldNotify(st.Previous, r, st.ConsecutiveFailures, threshold)
			st = st.Advance(r)
		}
		return out
	}

	properties.Property("first cycle and every transition notify", prop.ForAll(
		func(obs []bool, threshold int) bool {
			if len(obs) == 0 {
				return true
			}
			got := run(obs, threshold)
			if !got[0] {
				return false
			}
			for i := 1; i < len(obs); i++ {
				if obs[i] != obs[i-1] && !got[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Bool()),
		gen.IntRange(1, 10),
	))

	properties.Property("steady online never repeats", prop.ForAll(
		func(n int, threshold int) bool {
			obs := make([]bool, n)
			for i := range obs {
				obs[i] = true
			}
			got := run(obs, threshold)
			for i := 1; i < n; i++ {
				if got[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 50),
		gen.IntRange(1, 10),
	))

	properties.Property("steady offline notifies exactly from the threshold on", prop.ForAll(
		func(n int, threshold int) bool {
			obs := make([]bool, n+1)
			obs[0] = true
			got := run(obs, threshold)
			for i := 1; i <= n; i++ {
				// i is the failure count after cycle i
				want := i == 1 || i >= threshold
				if got[i] != want {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 30),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}
