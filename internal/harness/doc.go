// Package harness runs marketplace conformance scenarios.
//
// A scenario is a YAML file naming a set of accounts, the deploying account
// and an ordered list of steps. Each step invokes one marketplace operation
// from one account and states whether it must succeed or which error code
// it must fail with. A step may also watch for the entry its call produces,
// the way a client subscribes to a contract event before sending the
// transaction, and may assert on marketplace state once it has run.
//
// Every scenario runs against a fresh in-memory marketplace with fixed tx
// ids, so the resulting audit trace is deterministic and can be compared
// against a golden file:
//
//	scenario, _ := harness.LoadScenario("testdata/scenarios/marketplace.yaml")
//	result, _ := harness.Run(scenario)
//	if !result.Pass {
//		fmt.Println(result.Errors)
//	}
//
// Golden files live under testdata/golden and are regenerated with
//
//	go test ./internal/harness -update
package harness
