/*
Keyserver runs a development relayer: it serves public key material and input
proofs derived from a master key, for the relayer SDK used by fhevm-client.

The master key is given as --master-key (hex), derived from --passphrase, or
recovered from administrator shares when --admin-keys-file is set. In the last
case the server starts locked and unlocks once --threshold shares have been
submitted with keyadmin.
*/
package main
