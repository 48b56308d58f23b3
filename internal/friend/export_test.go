package friend

// EdgeTx exposes edgeTx to external test packages.
var EdgeTx = edgeTx
