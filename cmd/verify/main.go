// Command verify is the auditor's side of the fairness story: given a
// settlement export or the published seeds, it replays the outcome
// derivation and reports whether the record holds up.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	_ "github.com/joho/godotenv/autoload"

	"casino-engine/game"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "settlement":
		if len(os.Args) < 3 {
			log.Fatal("Usage: verify settlement <settlement.json>")
		}
		verifySettlement(os.Args[2])

	case "derive":
		if len(os.Args) < 6 {
			log.Fatal("Usage: verify derive <game> <server_seed> <client_seed> <nonce>")
		}
		deriveOutcome(os.Args[2], os.Args[3], os.Args[4], os.Args[5])

	case "commit":
		if len(os.Args) < 3 {
			log.Fatal("Usage: verify commit <server_seed>")
		}
		fmt.Println(game.HashCommitment(os.Args[2]))

	default:
		log.Printf("Unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func verifySettlement(path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read settlement: %v", err)
	}
	var stl game.Settlement
	if err := json.Unmarshal(raw, &stl); err != nil {
		log.Fatalf("Failed to parse settlement: %v", err)
	}

	if !game.Verify(&stl) {
		log.Fatalf("Settlement %s FAILED verification", stl.SessionID)
	}
	if stl.Forced {
		log.Printf("Settlement %s: commitment verified (forced outcome, no derivation check)", stl.SessionID)
		return
	}
	log.Printf("Settlement %s verified: seed matches commitment, outcome replays", stl.SessionID)
}

func deriveOutcome(kindArg, serverSeed, clientSeed, nonceArg string) {
	nonce, err := strconv.ParseUint(nonceArg, 10, 64)
	if err != nil {
		log.Fatalf("Invalid nonce %q: %v", nonceArg, err)
	}

	kind := game.Kind(kindArg)
	cfg := game.Config{}
	if kind == game.KindSlotClassic {
		cfg.Slot = game.DefaultSlotConfig()
	}

	out, err := game.DeriveOutcome(kind, cfg, serverSeed, clientSeed, nonce)
	if err != nil {
		log.Fatalf("Derivation failed: %v", err)
	}

	enc, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode outcome: %v", err)
	}
	fmt.Println(string(enc))
}

func printUsage() {
	fmt.Println("Fairness Verification Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  verify settlement <file>                              Check a settlement export")
	fmt.Println("  verify derive <game> <server_seed> <client_seed> <n>  Replay an outcome from seeds")
	fmt.Println("  verify commit <server_seed>                           Print a seed's commitment")
	fmt.Println()
	fmt.Println("Games:")
	for _, k := range game.RegisteredKinds() {
		fmt.Printf("  %s\n", k)
	}
}
