// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.

package merkle_test

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"hash"
	"testing"

	"github.com/adeputraprimasuhendri/blockchain/foundation/blockchain/merkle"
)

// Data uses the configured hashing algorithm for the merkle tree.
type Data struct {
	x string
}

// Hash hashes the values using sha256.
func (d Data) Hash() ([]byte, error) {
	h := sha256.New()
	if _, err := h.Write([]byte(d.x)); err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}

// Equals tests for equality of two piece of data.
func (d Data) Equals(other Data) bool {
	return d.x == other.x
}

// =============================================================================

var table = []struct {
	name          string
	hashStrategy  func() hash.Hash
	data          []Data
	notInContents Data
}{
	{
		name:          "one",
		hashStrategy:  sha256.New,
		data:          []Data{{x: "Hello"}},
		notInContents: Data{x: "NotInTestTable"},
	},
	{
		name:          "even",
		hashStrategy:  sha256.New,
		data:          []Data{{x: "Hello"}, {x: "Hi"}, {x: "Hey"}, {x: "Hola"}},
		notInContents: Data{x: "NotInTestTable"},
	},
	{
		name:          "odd",
		hashStrategy:  sha256.New,
		data:          []Data{{x: "Hello"}, {x: "Hi"}, {x: "Hey"}},
		notInContents: Data{x: "NotInTestTable"},
	},
	{
		name:          "odd-upper-level",
		hashStrategy:  sha256.New,
		data:          []Data{{x: "Hello"}, {x: "Hi"}, {x: "Hey"}, {x: "Greetings"}, {x: "Hola"}},
		notInContents: Data{x: "NotInTestTable"},
	},
	{
		name:          "nine-md5",
		hashStrategy:  md5.New,
		data:          []Data{{x: "123"}, {x: "234"}, {x: "345"}, {x: "456"}, {x: "1123"}, {x: "2234"}, {x: "3345"}, {x: "4456"}, {x: "5567"}},
		notInContents: Data{x: "NotInTestTable"},
	},
}

// expectedRoot calculates the root with a plain pairwise reduction so the
// tree implementation is checked against an independent calculation.
func expectedRoot(t *testing.T, data []Data, hashStrategy func() hash.Hash) []byte {
	level := make([][]byte, len(data))
	for i, d := range data {
		h, err := d.Hash()
		if err != nil {
			t.Fatalf("Should be able to hash data: %s", err)
		}
		level[i] = h
	}

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}

		var next [][]byte
		for i := 0; i < len(level); i += 2 {
			h := hashStrategy()
			h.Write(append(bytes.Clone(level[i]), level[i+1]...))
			next = append(next, h.Sum(nil))
		}
		level = next
	}

	return level[0]
}

// =============================================================================

func Test_NewTree(t *testing.T) {
	for _, tst := range table {
		f := func(t *testing.T) {
			tree, err := merkle.NewTree(tst.data, merkle.WithHashStrategy[Data](tst.hashStrategy))
			if err != nil {
				t.Fatalf("Test %s:\tShould be able to construct a tree: %v", tst.name, err)
			}

			exp := expectedRoot(t, tst.data, tst.hashStrategy)
			if !bytes.Equal(tree.MerkleRoot, exp) {
				t.Logf("Test %s:\tgot: %x", tst.name, tree.MerkleRoot)
				t.Logf("Test %s:\texp: %x", tst.name, exp)
				t.Fatalf("Test %s:\tShould get back the right merkle root.", tst.name)
			}

			values := tree.Values()
			if len(values) != len(tst.data) {
				t.Fatalf("Test %s:\tShould get back every value without duplicates: got %d, exp %d", tst.name, len(values), len(tst.data))
			}
			for i := range values {
				if !values[i].Equals(tst.data[i]) {
					t.Fatalf("Test %s:\tShould get back the values in order.", tst.name)
				}
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_EmptyTree(t *testing.T) {
	tree, err := merkle.NewTree([]Data{})
	if err != nil {
		t.Fatalf("Should be able to construct an empty tree: %v", err)
	}

	if !bytes.Equal(tree.MerkleRoot, merkle.EmptyRoot) {
		t.Fatalf("Should get back the empty root: got %x", tree.MerkleRoot)
	}

	const zeroHash = "0x0000000000000000000000000000000000000000000000000000000000000000"
	if tree.RootHex() != zeroHash {
		t.Logf("got: %s", tree.RootHex())
		t.Logf("exp: %s", zeroHash)
		t.Fatalf("Should get back the zero hash for an empty tree.")
	}

	if len(tree.Values()) != 0 {
		t.Fatalf("Should get back no values from an empty tree.")
	}
}

func Test_OrderSensitive(t *testing.T) {
	a := []Data{{x: "Hello"}, {x: "Hi"}, {x: "Hey"}}
	b := []Data{{x: "Hi"}, {x: "Hello"}, {x: "Hey"}}

	ta, err := merkle.NewTree(a)
	if err != nil {
		t.Fatalf("Should be able to construct a tree: %v", err)
	}

	tb, err := merkle.NewTree(b)
	if err != nil {
		t.Fatalf("Should be able to construct a tree: %v", err)
	}

	if bytes.Equal(ta.MerkleRoot, tb.MerkleRoot) {
		t.Fatalf("Should get a different root when the values are reordered.")
	}
}

func Test_VerifyData(t *testing.T) {
	for _, tst := range table {
		f := func(t *testing.T) {
			tree, err := merkle.NewTree(tst.data, merkle.WithHashStrategy[Data](tst.hashStrategy))
			if err != nil {
				t.Fatalf("Test %s:\tShould be able to construct a tree: %v", tst.name, err)
			}

			for _, d := range tst.data {
				if err := tree.VerifyData(d); err != nil {
					t.Fatalf("Test %s:\tShould be able to verify data %q: %v", tst.name, d.x, err)
				}
			}

			if err := tree.VerifyData(tst.notInContents); err == nil {
				t.Fatalf("Test %s:\tShould not verify data outside the tree.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_Proof(t *testing.T) {
	for _, tst := range table {
		f := func(t *testing.T) {
			tree, err := merkle.NewTree(tst.data, merkle.WithHashStrategy[Data](tst.hashStrategy))
			if err != nil {
				t.Fatalf("Test %s:\tShould be able to construct a tree: %v", tst.name, err)
			}

			for _, d := range tst.data {
				proof, order, err := tree.Proof(d)
				if err != nil {
					t.Fatalf("Test %s:\tShould be able to get a proof: %v", tst.name, err)
				}

				hash, _ := d.Hash()
				for i := range proof {
					var data []byte
					switch order[i] {
					case 0:
						data = append(bytes.Clone(proof[i]), hash...)
					default:
						data = append(bytes.Clone(hash), proof[i]...)
					}

					h := tst.hashStrategy()
					h.Write(data)
					hash = h.Sum(nil)
				}

				if !bytes.Equal(hash, tree.MerkleRoot) {
					t.Fatalf("Test %s:\tShould be able to prove %q is in the tree.", tst.name, d.x)
				}
			}
		}

		t.Run(tst.name, f)
	}
}
