// Package mimiqlink connects to the MIMIQ remote quantum circuit emulation
// services operated by QPerfect.
//
// A Connection authenticates with credentials, a stored refresh token or a
// browser login (New -> ConnectUser/ConnectToken/ConnectWeb), keeps the
// session alive in the background, submits execution requests with their
// input files and downloads the uploaded and result files. PlanqkConnection
// offers the same request surface through the PlanQK marketplace gateway.
package mimiqlink
