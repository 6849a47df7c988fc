package errs

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestIsThroughWrapping(t *testing.T) {
	err := NotFound("database %s not found on %s", "ORCL", "host1")
	wrapped := fmt.Errorf("resolving source: %w", err)

	if !Is(wrapped, KindNotFound) {
		t.Error("Is(wrapped, KindNotFound) = false")
	}
	if Is(wrapped, KindAmbiguous) {
		t.Error("Is(wrapped, KindAmbiguous) = true")
	}
	if Is(errors.New("plain"), KindNotFound) {
		t.Error("plain error classified as NotFound")
	}
}

func TestAmbiguousNamesEveryID(t *testing.T) {
	err := Ambiguous([]string{"m1", "m2", "m3"}, "database ORCL has 3 live mounts on host1")

	line := Line(err)
	if !strings.HasPrefix(line, "Ambiguous: ") {
		t.Errorf("Line() = %q, want Ambiguous prefix", line)
	}
	for _, id := range []string{"m1", "m2", "m3"} {
		if !strings.Contains(line, id) {
			t.Errorf("Line() = %q, missing id %s", line, id)
		}
	}
	if !strings.Contains(line, "errs_test.go:") {
		t.Errorf("Line() = %q, missing origin", line)
	}
	if strings.Contains(line, "\n") {
		t.Errorf("Line() spans multiple lines: %q", line)
	}
}

func TestStackOnlyInVerboseFormat(t *testing.T) {
	err := Validation("mount path required")

	if strings.Contains(fmt.Sprintf("%v", err), ".go:") {
		t.Error("plain output contains a stack trace")
	}
	if !strings.Contains(fmt.Sprintf("%+v", err), "errs_test.go") {
		t.Error("verbose output is missing the stack trace")
	}
}

func TestTimeoutCarriesStatus(t *testing.T) {
	err := Timeout("RUNNING", "job %s did not finish within %s", "req-1", "20m")
	e, ok := As(err)
	if !ok {
		t.Fatal("As() failed")
	}
	if e.Kind != KindTimeout || e.Status != "RUNNING" {
		t.Errorf("got kind %v status %q", e.Kind, e.Status)
	}
}

func TestRequestFailedWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := RequestFailed("network", cause, "GET /api/v1/cluster/me")
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error() = %q", err.Error())
	}
}
