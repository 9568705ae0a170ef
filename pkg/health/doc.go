/*
Package health runs the one-shot checks behind "karatekonnect doctor".

A Checker reports a Result for one dependency: HTTPChecker for the remote
API and the roster document, StoreChecker for the local key/value store.
Run executes a list of checkers in order and Failed counts the unhealthy
reports.
*/
package health
