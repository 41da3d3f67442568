package transport

// HostedAPI documents the contract a hosted-mail-API-backed Transport
// would satisfy. The hosted mail API driver itself is an external
// collaborator, so this file carries no networking code, only the
// statement that any
// concrete hosted-API client need only implement the Transport interface
// declared in transport.go to be usable by mailer.Mailer.
