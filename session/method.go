package session

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// MintMethod is a contract entry point of the form name(address) or
// name(address,uint256), bound from its signature alone.
type MintMethod struct {
	Name      string
	Signature string
	Selector  [4]byte

	args abi.Arguments
}

// ParseMintMethod accepts "safeMint(address,uint256)" and also tolerates
// parameter names and whitespace, e.g. "safeMint(address to, uint256 id)".
func ParseMintMethod(sig string) (*MintMethod, error) {
	sig = strings.TrimSpace(sig)
	open := strings.IndexByte(sig, '(')
	if open <= 0 || !strings.HasSuffix(sig, ")") {
		return nil, fmt.Errorf("malformed method signature %q", sig)
	}

	name := strings.TrimSpace(sig[:open])
	if strings.ContainsAny(name, " \t,") {
		return nil, fmt.Errorf("malformed method name %q", name)
	}

	var typeNames []string
	if inner := strings.TrimSpace(sig[open+1 : len(sig)-1]); inner != "" {
		for _, p := range strings.Split(inner, ",") {
			fields := strings.Fields(p)
			if len(fields) == 0 {
				return nil, fmt.Errorf("empty parameter in %q", sig)
			}
			typeNames = append(typeNames, canonicalType(fields[0]))
		}
	}

	if len(typeNames) == 0 || len(typeNames) > 2 {
		return nil, fmt.Errorf("mint method must take (address) or (address,uint256), got %d parameters", len(typeNames))
	}
	if typeNames[0] != "address" {
		return nil, fmt.Errorf("first mint parameter must be address, got %s", typeNames[0])
	}
	if len(typeNames) == 2 && typeNames[1] != "uint256" {
		return nil, fmt.Errorf("second mint parameter must be uint256, got %s", typeNames[1])
	}

	args := make(abi.Arguments, 0, len(typeNames))
	for i, tn := range typeNames {
		t, err := abi.NewType(tn, "", nil)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		args = append(args, abi.Argument{Name: fmt.Sprintf("arg%d", i), Type: t})
	}

	canonical := name + "(" + strings.Join(typeNames, ",") + ")"
	m := &MintMethod{Name: name, Signature: canonical, args: args}
	copy(m.Selector[:], keccak256([]byte(canonical))[:4])
	return m, nil
}

func canonicalType(t string) string {
	switch t {
	case "uint":
		return "uint256"
	case "int":
		return "int256"
	}
	return t
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// TakesTokenID reports whether calls carry a token id.
func (m *MintMethod) TakesTokenID() bool {
	return len(m.args) == 2
}

// Pack builds calldata. tokenID is ignored when the method takes no id and
// required when it does.
func (m *MintMethod) Pack(recipient common.Address, tokenID *big.Int) ([]byte, error) {
	var (
		enc []byte
		err error
	)
	if m.TakesTokenID() {
		if tokenID == nil {
			return nil, fmt.Errorf("%s requires a token id", m.Signature)
		}
		if tokenID.Sign() < 0 {
			return nil, fmt.Errorf("token id %s is negative", tokenID)
		}
		enc, err = m.args.Pack(recipient, tokenID)
	} else {
		enc, err = m.args.Pack(recipient)
	}
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", m.Signature, err)
	}

	data := make([]byte, 0, 4+len(enc))
	data = append(data, m.Selector[:]...)
	return append(data, enc...), nil
}
