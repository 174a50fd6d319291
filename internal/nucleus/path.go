package nucleus

import "strings"

// illegalPathChars lists the characters no simplified path may contain,
// per spec section 6. Backslash is listed for symmetry with the source
// convention even though Simplify has already rewritten every backslash to
// a forward slash by the time this check runs.
const illegalPathChars = `"\:*?<>|`

// Simplify normalizes a filesystem path, per spec section 6 ("Simplify (a
// path)"): backslashes become forward slashes, runs of '/' collapse to one,
// and leading/trailing '/' are stripped. ".." segments are left as-is; a
// future filesystem implementation may give them meaning, but none does
// today. Simplify is idempotent: Simplify(Simplify(p)) == Simplify(p).
//
// ok is false if p contains an illegal character or the simplified result
// exceeds MaxPath.
func Simplify(p string) (simplified string, ok bool) {
	p = strings.ReplaceAll(p, `\`, "/")

	segments := strings.Split(p, "/")
	kept := segments[:0]

	for _, seg := range segments {
		if seg == "" {
			continue
		}

		kept = append(kept, seg)
	}

	simplified = strings.Join(kept, "/")

	if strings.ContainsAny(simplified, illegalPathChars) {
		return "", false
	}

	if len(simplified) > MaxPath {
		return "", false
	}

	return simplified, true
}
