// Package secretmanager is the public entry point for managing age keys
// and SOPS encrypted files.
//
// A Manager binds one keyring file, a key generator and a sops client.
// Key lifecycle calls go to the keyring store, which serializes every file
// touch through a filelock.Arbiter. Encrypt, Decrypt and Edit go to sops,
// which receives SOPS_AGE_KEY_FILE pointing at the same keyring so that
// decryption uses the keys this Manager manages.
//
// # Usage
//
//	m, err := secretmanager.New(secretmanager.Options{
//	    KeyFilePath: path,
//	    Generator:   keygen.Native{},
//	})
//	key, err := m.CreateKey(ctx)
//	out, err := m.Encrypt(ctx, "secret.yaml", key.PublicKey)
//
// Successful key and file operations append an entry to the audit log when
// one is configured.
package secretmanager
