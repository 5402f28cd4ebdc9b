// Package auth authenticates chat requests with API keys.
//
// Keys are read from the sources configured under auth.sources, tried in
// order: header values, optionally prefixed with a scheme such as
// "Bearer", and query parameters.
//
//	validator := auth.FromConfig(cfg.Auth)
//	mw := auth.NewAPIKeyMiddleware(validator, cfg.Auth.Sources, logger)
//	handler = mw.Handle(handler)
//
// Requests without a valid enabled key receive 401 with the JSON error
// body used by the rest of the API. The key is never logged; handlers
// reach the key name via KeyInfoFromContext.
package auth
