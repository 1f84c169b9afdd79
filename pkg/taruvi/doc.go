// Package taruvi is the Go client for the Taruvi multi-tenant backend. It
// covers functions, datatables, storage buckets, secrets, users, policy
// checks and authentication over the backend's HTTPS/JSON API.
//
// Clients are immutable values. Authentication transitions return new
// clients, so several identities can share one process safely:
//
//	client, err := taruvi.NewClient(taruvi.Config{
//		APIURL:  "https://api.example.com",
//		AppSlug: "crm",
//	})
//	if err != nil {
//		return err
//	}
//
//	admin, err := client.Auth().SignInWithToken(token, taruvi.TokenTypeJWT)
//	if err != nil {
//		return err
//	}
//
// Datatable queries are built fluently and hit the wire only at a terminal
// call:
//
//	rows, err := admin.Database().Query("contacts").
//		Filter("status", taruvi.OpEq, "active").
//		Filter("age", taruvi.OpGte, 21).
//		Sort("created_at", "desc").
//		PageSize(50).
//		Get(ctx)
//
// Failures map onto a sentinel taxonomy usable with errors.Is:
//
//	if errors.Is(err, taruvi.ErrNotFound) {
//		// handle missing row
//	}
//
// Every request retries 429/500/503 responses with exponential backoff
// (1s, 2s, 4s, ...) up to Config.MaxRetries extra attempts; all other
// failures surface immediately.
package taruvi
