/*
Package dict decodes and encodes the line protocol Dovecot's dict proxy client speaks
over a Unix socket. Each request line starts with a one-character command tag followed
by tab-separated fields. Lookup keys carry their positional arguments separated by
double quotes, with backslash as escape character.

Replies start with O (found, JSON payload follows), N (not found) or F (failure) and
end with a single newline. Iteration answers are a series of O lines closed by an
empty line.
*/
package dict
