// Package data embeds the default dialogue resources shipped with the
// service. Each file can be replaced at runtime through its *_PATH variable.
package data

import _ "embed"

// Cities is the ';'-delimited gazetteer: a header row, then department and
// municipality per line.
//
//go:embed cities.txt
var Cities []byte

// Intents maps intent names to trigger phrases.
//
//go:embed intents.yaml
var Intents []byte

// Responses is the reply catalogue.
//
//go:embed responses.yaml
var Responses []byte

// Days is the day-offset lexicon.
//
//go:embed days.yaml
var Days []byte
