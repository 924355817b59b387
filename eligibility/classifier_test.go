package eligibility

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

const examplePattern = `^[^@\s]+@example\.com$`

func TestIsEligibleVectors(t *testing.T) {
	c, err := New(examplePattern, []string{"vip@other.org"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	tests := []struct {
		identity string
		want     bool
	}{
		{identity: "a@example.com", want: true},
		{identity: "a@EXAMPLE.com", want: true},
		{identity: "vip@other.org", want: true},
		{identity: "VIP@Other.org", want: true},
		{identity: "x@other.org", want: false},
		{identity: "a@example.com.attacker.org", want: false},
		{identity: "", want: false},
	}

	for _, tc := range tests {
		if got := c.IsEligible(tc.identity); got != tc.want {
			t.Fatalf("IsEligible(%q)=%v want %v", tc.identity, got, tc.want)
		}
	}
}

func TestOriginalCampusPattern(t *testing.T) {
	pattern := `^([a-z0-9]+(\.[a-z0-9]+)?_(ug|asp)[0-9]{2}@ashoka\.edu\.in|[a-z0-9.]+@alumni\.ashoka\.edu\.in)$`
	c, err := New(pattern, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	accept := []string{
		"adhiraj.singh_ug21@ashoka.edu.in",
		"adhiraj.singh_asp20@ashoka.edu.in",
		"adhiraj.a123_asp42@ashoka.edu.in",
		"adhiraj1.singh123_ug24@ashoka.edu.in",
		"somename_ug20@ashoka.edu.in",
		"shruthisagar@alumni.ashoka.edu.in",
		"aaditya.shetty@alumni.ashoka.edu.in",
	}
	reject := []string{
		"adhiraj.singh_yif21@ashoka.edu.in",
		"adhirajsingh@gmail.com",
		"ahbkahdadkqdkj",
		"adhiraj1.singh123_phd24@ashoka.edu.in",
		"adhiraj1.singh123_phd24_ug21@ashoka.edu.in",
		"adhiraj1.singh123@alumni2.ashoka.edu.in",
	}

	for _, id := range accept {
		if !c.IsEligible(id) {
			t.Fatalf("expected %q to be eligible", id)
		}
	}
	for _, id := range reject {
		if c.IsEligible(id) {
			t.Fatalf("expected %q to be rejected", id)
		}
	}
}

func TestNewRequiresARule(t *testing.T) {
	if _, err := New("", nil); !errors.Is(err, ErrNoRule) {
		t.Fatalf("expected ErrNoRule, got %v", err)
	}
	if _, err := New("", []string{"  ", ""}); !errors.Is(err, ErrNoRule) {
		t.Fatalf("expected ErrNoRule for blank allow-list, got %v", err)
	}
}

func TestEmptyPatternDoesNotMatchEverything(t *testing.T) {
	c, err := New("", []string{"vip@other.org"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.IsEligible("anyone@example.com") {
		t.Fatal("empty pattern must not admit arbitrary identities")
	}
	if !c.IsEligible("vip@other.org") {
		t.Fatal("allow-listed identity must be eligible")
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	if _, err := New("([", nil); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestPatternMatchesFromStart(t *testing.T) {
	c, err := New(`[a-z0-9.]+@alumni\.ashoka\.edu\.in`, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.Pattern() != `[a-z0-9.]+@alumni\.ashoka\.edu\.in` {
		t.Fatalf("Pattern() must return the configured source, got %q", c.Pattern())
	}

	tests := []struct {
		identity string
		want     bool
	}{
		{identity: "aaditya.shetty@alumni.ashoka.edu.in", want: true},
		{identity: "<script>x@alumni.ashoka.edu.in", want: false},
		{identity: " x@alumni.ashoka.edu.in", want: false},
		{identity: "mallory+x@alumni.ashoka.edu.in", want: false},
		// no end anchor, so a suffix is tolerated; SecurityReport flags this
		{identity: "x@alumni.ashoka.edu.in.evil.org", want: true},
	}
	for _, tc := range tests {
		if got := c.IsEligible(tc.identity); got != tc.want {
			t.Fatalf("IsEligible(%q)=%v want %v", tc.identity, got, tc.want)
		}
	}

	alt, err := New(`a@example\.com|b@example\.com`, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !alt.IsEligible("b@example.com") || alt.IsEligible("xb@example.com") {
		t.Fatal("the start anchor must apply to every alternative")
	}
}

func TestAnchored(t *testing.T) {
	tests := []struct {
		pattern string
		want    bool
	}{
		{pattern: examplePattern, want: true},
		{pattern: `@example\.com`, want: false},
		{pattern: `^.*@example\.com`, want: false},
		{pattern: `[a-z]+@example\.com$`, want: true},
		{pattern: `\A.+@example\.com\z`, want: true},
	}
	for _, tc := range tests {
		c, err := New(tc.pattern, nil)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", tc.pattern, err)
		}
		if got := c.Anchored(); got != tc.want {
			t.Fatalf("Anchored(%q)=%v want %v", tc.pattern, got, tc.want)
		}
	}
}

func TestIsEligibleConcurrent(t *testing.T) {
	c, err := New(examplePattern, []string{"vip@other.org"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if !c.IsEligible("a@example.com") || c.IsEligible("x@other.org") {
					t.Error("inconsistent classification under concurrency")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestLoadAllowList(t *testing.T) {
	src := "name,email,year\n" +
		"Vip,vip@other.org,2021\n" +
		"Blank,,2022\n" +
		"Spaced,  Guest@Other.org  ,2023\n" +
		"Short\n"

	values, err := LoadAllowList(strings.NewReader(src), "email")
	if err != nil {
		t.Fatalf("LoadAllowList failed: %v", err)
	}
	if len(values) != 2 || values[0] != "vip@other.org" || values[1] != "Guest@Other.org" {
		t.Fatalf("unexpected values: %#v", values)
	}

	c, err := New("", values)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.AllowListSize() != 2 || !c.IsEligible("guest@other.org") {
		t.Fatal("allow-list entries must be normalized to lower case")
	}
}

func TestLoadAllowListErrors(t *testing.T) {
	if _, err := LoadAllowList(strings.NewReader(""), "email"); !errors.Is(err, ErrEmptySource) {
		t.Fatalf("expected ErrEmptySource, got %v", err)
	}
	if _, err := LoadAllowList(strings.NewReader("name,mail\nx,y\n"), "email"); !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("expected ErrColumnNotFound, got %v", err)
	}
}

func TestLoadAllowListFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "members.csv")
	if err := os.WriteFile(path, []byte("\ufeffemail\nvip@other.org\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	values, err := LoadAllowListFile(path, "email")
	if err != nil {
		t.Fatalf("LoadAllowListFile failed: %v", err)
	}
	if len(values) != 1 || values[0] != "vip@other.org" {
		t.Fatalf("unexpected values: %#v", values)
	}

	if _, err := LoadAllowListFile(filepath.Join(t.TempDir(), "missing.csv"), "email"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
