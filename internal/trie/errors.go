package trie

import "errors"

// ErrCorruptNode signals a backing-store I/O or encoding failure while
// decoding a trie node — a DatabaseState-class error per spec §7.
var ErrCorruptNode = errors.New("trie: corrupt node encoding")

// ErrAccountNotFound is returned by Proof when the requested EVM account
// summary is absent from the trie.
var ErrAccountNotFound = errors.New("trie: account not found")

// ErrOutOfRange is returned by Proof for any address outside the L2
// predeploy range (spec §4.1: "Only L2 predeploy addresses may be
// proved").
var ErrOutOfRange = errors.New("trie: address not provable")
