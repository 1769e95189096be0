// Package harness runs tracker scenarios: scripted user actions against a
// logic description, followed by assertions on the resulting state.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: hera_walkthrough
//	description: Climbing the mountain opens the tower
//	logic: ../logic/mini.cue       # relative to the scenario file
//	variant: glitched              # optional
//	steps:
//	  - action: set
//	    target: glove
//	    value: true
//	  - action: toggle
//	    target: eastdm
//	    expect_error: true          # bound facts cannot be toggled
//	  - action: medallion
//	    target: mire
//	    choice: ether
//	assertions:
//	  - type: fact
//	    target: eastdm
//	    value: true
//	  - type: dungeon
//	    target: hera
//	    accessible: 5
//	  - type: events
//	    target: eastdm
//	    count: 1
//
// Unknown fields are rejected so typos fail loudly.
//
// # Deterministic Testing
//
// Every run records its actions into an in-memory journal with sequential
// session ids and a deterministic clock, then replays the journal into a
// second tracker and checks both end in the same state. The trace (one entry
// per step with the entity events it produced) and the final snapshot are
// stable across runs, so they can be compared against golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/cave.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
