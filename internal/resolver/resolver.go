// Package resolver picks concrete versions out of a registry's published
// version list. It performs no I/O.
package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrNoMatchingVersion is used by callers when a constraint resolves to
// nothing and there is no installed copy to fall back on. The functions in
// this package never return it themselves.
var ErrNoMatchingVersion = errors.New("no matching version")

// ResolveAgainstLatest returns the greatest version in versions that matches
// the caret range ^base, or "" when none does. Malformed entries are skipped.
//
// Caret ranges follow npm: the left-most non-zero component is fixed, and
// pre-releases only match when base is a pre-release of the same
// major.minor.patch.
func ResolveAgainstLatest(base string, versions []string) string {
	b, err := parse(base)
	if err != nil {
		return ""
	}

	var best *semver.Version
	var bestRaw string
	for _, raw := range versions {
		v, err := semver.StrictNewVersion(raw)
		if err != nil {
			continue
		}
		if !caretMatch(b, v) {
			continue
		}
		if better(v, raw, best, bestRaw) {
			best, bestRaw = v, raw
		}
	}
	return bestRaw
}

// better orders candidates by semver precedence. Versions that differ only in
// build metadata have equal precedence, so the raw string breaks the tie and
// the pick does not depend on input order.
func better(v *semver.Version, raw string, best *semver.Version, bestRaw string) bool {
	if best == nil {
		return true
	}
	if c := v.Compare(best); c != 0 {
		return c > 0
	}
	return raw > bestRaw
}

func caretMatch(base, v *semver.Version) bool {
	if v.LessThan(base) || v.Major() != base.Major() {
		return false
	}
	switch {
	case base.Major() > 0:
	case base.Minor() > 0:
		if v.Minor() != base.Minor() {
			return false
		}
	default:
		if v.Minor() != 0 || v.Patch() != base.Patch() {
			return false
		}
	}
	if v.Prerelease() != "" {
		return base.Prerelease() != "" &&
			v.Minor() == base.Minor() && v.Patch() == base.Patch()
	}
	return true
}

// ResolveRange returns the greatest version in versions satisfying the semver
// range constraint, or "" when none does. An unparsable constraint is an error.
func ResolveRange(constraint string, versions []string) (string, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return "", fmt.Errorf("parsing version range %q: %w", constraint, err)
	}

	var best *semver.Version
	var bestRaw string
	for _, raw := range versions {
		v, err := semver.StrictNewVersion(raw)
		if err != nil {
			continue
		}
		if !c.Check(v) {
			continue
		}
		if better(v, raw, best, bestRaw) {
			best, bestRaw = v, raw
		}
	}
	return bestRaw, nil
}

// Satisfies reports whether version matches constraint. Either side being
// malformed yields false.
func Satisfies(constraint, version string) bool {
	v, err := parse(version)
	if err != nil {
		return false
	}
	if exact, err := parse(constraint); err == nil {
		return exact.Equal(v)
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false
	}
	return c.Check(v)
}

// IsConcrete reports whether constraint names exactly one version.
func IsConcrete(constraint string) bool {
	_, err := semver.StrictNewVersion(strings.TrimPrefix(strings.TrimSpace(constraint), "v"))
	return err == nil
}

// Compare returns -1, 0 or 1 as a is less than, equal to, or greater than b.
// Malformed versions compare as equal so callers never act on them.
func Compare(a, b string) int {
	av, err := parse(a)
	if err != nil {
		return 0
	}
	bv, err := parse(b)
	if err != nil {
		return 0
	}
	return av.Compare(bv)
}

// IsNewer reports whether candidate is strictly greater than current.
func IsNewer(candidate, current string) bool {
	return Compare(candidate, current) > 0
}

// parse strips a leading "v" and parses the version strictly.
func parse(version string) (*semver.Version, error) {
	return semver.StrictNewVersion(strings.TrimPrefix(strings.TrimSpace(version), "v"))
}
