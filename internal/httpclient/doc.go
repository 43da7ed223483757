// Package httpclient builds and sends the HTTP requests callcheck executes.
//
// A [RequestBuilder] turns a [config.Config] into a prepared request:
//   - method, target URL and canonicalized headers
//   - an optional bearer token for the Authorization header
//   - a body loaded from inline content or a file, replayable through GetBody
//   - {{name}} placeholders expanded from the [variables.Store] on the context
//
//	builder, err := httpclient.NewRequestBuilder(cfg)
//	if err != nil {
//		return err
//	}
//	req, err := builder.Build(ctx)
//
// [NewClient] creates the client the executor sends requests with. Its
// [Timeouts] bound connection setup, waiting for response headers and the
// exchange as a whole:
//
//	client := httpclient.NewClient(httpclient.TimeoutsFromConfig(cfg))
//	resp, err := client.Do(req)
//
// [CurlCommand] renders a prepared request as a shell command line for
// header logging.
package httpclient
