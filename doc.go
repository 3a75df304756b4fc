// Package actions issues and redeems single-purpose action tokens: links
// mailed to a user that verify an email address or start a password reset.
//
// Issuance:
//   - ActionTokenIssuer checks the subject, the client and the redirect URI
//     before asking the TokenCodec to sign a payload.
//   - ActionDispatcher is the admin entry point. It resolves the subject,
//     issues the token and mails the link through a Mailer.
//
// Verification:
//   - ActionTokenProcessor decodes a clicked link, loads the subject and binds
//     the request to an authentication session.
//   - The first click reanchors the token to that session and redirects back to
//     the same endpoint. The second click finalizes: the owned required action
//     is removed and the user is sent to the validated redirect or a
//     confirmation page.
//
// Activity sinks:
//   - ActivitySink receives best-effort audit events from the dispatcher and
//     the handlers. Failures are logged and never abort the request. The events
//     package forwards them to Kafka.
package actions
