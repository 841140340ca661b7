package feemill

// Version of the feemill library and the binaries built from it.
const Version = "0.1.0"
