package goldilocks

import (
	"github.com/consensys/gnark-crypto/field/goldilocks"
)

func Uint64ArrayToVariableArray(input []uint64) []Variable {
	var output []Variable
	for i := 0; i < len(input); i++ {
		output = append(output, NewVariable(input[i]))
	}
	return output
}

func ElementArrayToVariableArray(input []goldilocks.Element) []Variable {
	var output []Variable
	for i := 0; i < len(input); i++ {
		output = append(output, NewVariable(input[i].Uint64()))
	}
	return output
}
