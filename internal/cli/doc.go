// Package cli wires configuration, token generation, the connection pool and
// the user services into the dsqlctl commands:
//
//   - repopulate: recreate the users table and insert sample users
//   - list-users / add-user: read and write single users
//   - stress-test: concurrent bulk inserts with throughput report
//   - user-stats: aggregate report over the users table
//   - generate-token: print an auth token and connection details
//
// Destructive commands ask for confirmation on a terminal; -yes answers for
// non-interactive use.
package cli
