package config

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/DoyleJ11/auction-draft-backend/internal/engine"
)

// TestProperty_RoleMinimumsRoundTrip renders random minimums in the env
// format and checks they parse back to the same counts.
func TestProperty_RoleMinimumsRoundTrip(t *testing.T) {
	defer os.Unsetenv("ROLE_MINIMUMS")
	rapid.Check(t, func(t *rapid.T) {
		want := map[engine.Role]int{}
		var parts []string
		for _, r := range engine.Roles {
			n := rapid.IntRange(0, 6).Draw(t, string(r))
			want[r] = n
			if n > 0 || rapid.Bool().Draw(t, "explicit-"+string(r)) {
				parts = append(parts, fmt.Sprintf("%s:%d", r, n))
			}
		}
		if len(parts) == 0 {
			return // an empty value means "use defaults"
		}
		os.Setenv("ROLE_MINIMUMS", strings.Join(parts, ","))

		got, err := getRoleMinimums("ROLE_MINIMUMS", nil)
		if err != nil {
			t.Fatalf("parse %q: %v", os.Getenv("ROLE_MINIMUMS"), err)
		}
		for r, n := range want {
			if got[r] != n {
				t.Fatalf("%s: got %d want %d", r, got[r], n)
			}
		}
	})
}

func TestProperty_TeamListTrimsAndDropsBlanks(t *testing.T) {
	defer os.Unsetenv("TEAM_NAMES")
	rapid.Check(t, func(t *rapid.T) {
		names := rapid.SliceOfN(rapid.StringMatching(`[A-Za-z][A-Za-z ]{0,12}[A-Za-z]`), 1, 8).Draw(t, "names")
		var raw []string
		for _, n := range names {
			pad := strings.Repeat(" ", rapid.IntRange(0, 2).Draw(t, "pad"))
			raw = append(raw, pad+n+pad)
			if rapid.Bool().Draw(t, "blank") {
				raw = append(raw, "  ")
			}
		}
		os.Setenv("TEAM_NAMES", strings.Join(raw, ","))

		got := getList("TEAM_NAMES", nil)
		if len(got) != len(names) {
			t.Fatalf("got %d names, want %d: %q", len(got), len(names), got)
		}
		for i := range names {
			if got[i] != names[i] {
				t.Fatalf("name %d: got %q want %q", i, got[i], names[i])
			}
		}
	})
}
