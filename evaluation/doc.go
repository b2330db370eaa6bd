/*
Package evaluation provides a load generator for a running doveauth. It provisions fresh accounts
over parallel dict proxy connections, the way Dovecot would on first logins, and records the round
trip of every lookup to an output file so that store adapters and password schemes can be compared.
*/
package main
