/*
Keyadmin manages the administrator shares of a threshold-protected keyserver.

	keyadmin generate-admin --admin-privkey-file a1.pem --admin-pubkey-file a1.pub.pem
	keyadmin generate-admins-config --admin-pubkey-files a1.pub.pem --admin-pubkey-files a2.pub.pem
	keyadmin split-master-key --shamir-threshold 2 --shares-dir shares/
	keyadmin submit-share --shamir-share-file shares/<admin id>.json
	keyadmin status
*/
package main
