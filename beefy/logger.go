package beefy

import (
	"encoding/hex"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/snowfork/snowbridge/beefy-client/beefy/bitfield"
)

func Hex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func commitmentToLog(commitment *Commitment) logrus.Fields {
	payloadFields := make([]logrus.Fields, len(commitment.Payload))
	for i, payloadItem := range commitment.Payload {
		payloadFields[i] = logrus.Fields{
			"payloadID": string(rune(payloadItem.PayloadID[0])) + string(rune(payloadItem.PayloadID[1])),
			"data":      Hex(payloadItem.Data),
		}
	}

	return logrus.Fields{
		"blockNumber":    commitment.BlockNumber,
		"validatorSetID": commitment.ValidatorSetID,
		"payload":        payloadFields,
	}
}

func bitfieldToStrings(b bitfield.Bitfield) []string {
	words := b.BigInts()
	strings := make([]string, len(words))
	for i, subfield := range words {
		strings[i] = fmt.Sprintf("%0256b", subfield)
	}

	return strings
}

func proofToLog(proof *ValidatorProof) logrus.Fields {
	hexProof := make([]string, len(proof.Proof))
	for i, proof := range proof.Proof {
		hexProof[i] = Hex(proof[:])
	}

	return logrus.Fields{
		"V":       proof.V,
		"R":       Hex(proof.R[:]),
		"S":       Hex(proof.S[:]),
		"Index":   proof.Index,
		"Account": proof.Account.Hex(),
		"Proof":   hexProof,
	}
}

func submissionToLog(sub *Submission) logrus.Fields {
	proofs := make([]logrus.Fields, len(sub.Proofs))
	for i := range sub.Proofs {
		proofs[i] = proofToLog(&sub.Proofs[i])
	}

	fields := logrus.Fields{
		"commitment": commitmentToLog(&sub.Commitment),
		"bitfield":   bitfieldToStrings(sub.Bitfield),
		"proofs":     proofs,
	}
	if sub.Leaf != nil {
		fields["leaf"] = logrus.Fields{
			"parentNumber":         sub.Leaf.ParentNumber,
			"nextAuthoritySetID":   sub.Leaf.NextAuthoritySetID,
			"nextAuthoritySetLen":  sub.Leaf.NextAuthoritySetLen,
			"nextAuthoritySetRoot": sub.Leaf.NextAuthoritySetRoot.Hex(),
		}
	}
	return fields
}

func stateToLog(state *State) logrus.Fields {
	return logrus.Fields{
		"latestMMRRoot":         state.LatestMMRRoot.Hex(),
		"latestBeefyBlock":      state.LatestBeefyBlock,
		"currentValidatorSetID": state.CurrentValidatorSet.ID,
		"nextValidatorSetID":    state.NextValidatorSet.ID,
	}
}
