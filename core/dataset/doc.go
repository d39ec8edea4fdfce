// Package dataset models the data entries attached to a run and renders
// them into the "Input Data" block of every agent prompt.
//
// Entries come from the architect's suggestions, from local files
// ([FromFile]) or from web pages ([FromURL]). HTML sources are converted to
// markdown before they reach a prompt.
package dataset
