// Package services defines the [Source] interface for music streaming accounts and implements it for Yandex Music.
//
// # Yandex Music Implementation
//
// [YandexService] uses a static account token sent as "Authorization: OAuth <token>" through an
// [oauth2.Client] transport, with a [resty.Client] on top for request building and retries.
//
// Liked tracks are read in two steps:
//   - GET /account/status resolves the account uid
//   - GET /users/{uid}/likes/tracks lists like events (track id, album id, timestamp)
//
// Details are then fetched with POST /tracks, sending ids as the "track-ids" form field in
// chunks of the configured batch size.
//
// Ids arrive as numbers or strings, sometimes as "trackId:albumId"; [models.RawID] accepts all three.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrMissingCredentials] : no token configured
//   - [shared.ErrNotAuthenticated] : the token was rejected (401/403)
//   - [shared.ErrAPIRequest] : any other failed request or undecodable response
package services
