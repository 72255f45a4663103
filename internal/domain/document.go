package domain

// Document is a filed bond document identified by its content hash. The
// hash is what bond parameter commitments point at; the file itself lives
// off-system.
type Document struct {
	Hash    Hash
	Title   string
	Filer   AccountID
	FiledAt int64 // unix seconds
}

// DocumentSignature is one ed25519 signature over a document hash. The
// public key is the signer's raw 32-byte address.
type DocumentSignature struct {
	DocHash  Hash
	Signer   AccountID
	Sig      []byte // 64-byte ed25519 signature
	SignedAt int64
}
