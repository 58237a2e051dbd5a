// Package bump rewrites the project version across every configured
// file and keeps the release description in sync. VerifyFiles is the
// matching read-only check: every version file must carry exactly the
// version being released.
package bump
