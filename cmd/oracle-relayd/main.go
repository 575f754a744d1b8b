package main

import (
	"log"

	oracle "mapchain/services/oracle-relayd"
)

func main() {
	if err := oracle.Main(); err != nil {
		log.Fatalf("oracle-relayd: %v", err)
	}
}
