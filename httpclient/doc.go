// Package httpclient provides a policy-driven HTTP request execution
// pipeline: request/response interceptor chains, bounded retry with backoff,
// transparent single-flight credential refresh on 401, and total
// classification of every outcome into a closed error taxonomy.
//
// # Basic Usage
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.example.com",
//	    Timeout: 30 * time.Second,
//	    Retry:   resilience.Exponential(3, 200*time.Millisecond),
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodGet,
//	    Path:   "/users/123",
//	})
//
// # With credential refresh
//
//	store := credential.NewMemoryStoreWith(initialToken)
//	coord := credential.NewCoordinator(credential.CoordinatorConfig{
//	    Store:   store,
//	    Refresh: exchangeRefreshToken,
//	})
//	client, err := httpclient.New(cfg, httpclient.WithCredentials(store, coord))
//
// Typed JSON calls go through the generic helpers:
//
//	user, err := httpclient.Get[User](client, ctx, "/users/123")
package httpclient
