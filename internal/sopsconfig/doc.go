// Package sopsconfig reads and writes SOPS configuration files
// (.sops.yaml).
//
// Only the creation_rules section is modelled. Each rule names a
// path_regex selecting files, an encrypted_regex selecting the keys whose
// values SOPS encrypts, and an age block listing recipient public keys one
// per line. The age block is always written as a YAML literal block scalar
// so that the recipient list stays readable and diffable.
//
// Write never overwrites an existing file unless asked to.
package sopsconfig
