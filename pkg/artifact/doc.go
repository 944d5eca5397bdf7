// Package artifact writes generated artifacts: one JSON metadata record and
// one PNG image per combination, keyed by the 1-based artifact number.
//
// Output layout:
//
//	<root>/metadata/<index+1>.json
//	<root>/images/<index+1>.png
//	<root>/run.json               (written once a run completes)
//
// Metadata lists the selected variant of every layer in layer priority order,
// leaving out layers whose selection is absent:
//
//	{
//	  "name": "punk 2",
//	  "attributes": [
//	    {"trait_type": "hat", "value": "A.png"}
//	  ]
//	}
package artifact
