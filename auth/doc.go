/*
Package auth holds the account side of doveauth: the stores keeping one password record
per address (a directory tree on disk or a PostgreSQL table), the policy deciding whether an
unknown address may be provisioned on first login, the password hashers and the
Authenticator tying them together.

Creation of an account is atomic in every store. When several logins for the same new
address race, exactly one password hash is stored and every racer returns that record.
*/
package auth
