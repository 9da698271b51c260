// Package facts provides the append-only store of build-time facts.
//
// Facts are discovered once, during the prepare phase, and consulted by stage
// conditions afterwards. A fact is either a boolean or a string and is held
// as a cty.Value so that it can be exposed to HCL expressions without any
// further conversion. Once a key is written it can never be overwritten or
// removed: later writers may only add new keys.
package facts
