// Package password hashes account passwords for the development backend with
// argon2id.
//
// # Output format
//
// Hashes are PHC strings with unpadded base64 salt and key:
//
//	$argon2id$v=19$m=<memory KB>,t=<iterations>,p=<parallelism>$<salt>$<key>
//
// [Hasher.NeedsRehash] reports hashes produced with weaker parameters so they
// can be upgraded on the next successful login.
//
// # What this package must NOT do
//
//   - Store passwords. Callers keep the encoded hash.
//   - Log plaintext or hashes.
package password
