// Package boxgate implements a token-authenticated gateway in front of a
// private object store. Objects are grouped into boxes, each a two-digit
// id that maps to the key prefix "<id>/".
//
// # Key Components
//
//   - GatewayService: box listing, upload, delete, ranged streaming and
//     redirect lookup on top of the storage interfaces
//   - ObjectStore: backing storage contract (filesystem, S3/R2, in-memory)
//   - RedirectRepo: symbolic key to URL directory (SQLite, PostgreSQL)
//   - CounterStore: expiring counters used by the rate limiter
//   - TokenAuthenticator: shared-secret check for every protected route
//
// # Filenames
//
// Client names pass through NormalizeFilename before every write. Reads and
// deletes also try the keys produced by older normalization rules, see
// FilenameCandidates, so objects uploaded before a rule change stay
// reachable.
//
// # Example Usage
//
//	service, err := boxgate.NewGatewayService(store, redirects, boxgate.ServiceConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	box, _ := boxgate.ParseBox("box-01")
//	entries, err := service.List(ctx, box)
//
// See the http package for the REST surface and the objectstore and database
// packages for backends.
package boxgate
