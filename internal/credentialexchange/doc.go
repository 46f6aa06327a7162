// credentialexchange
//
// Handles the main flows for exchanging a Cognito user pool login for AWS
// temporary creds.
//
// A login (SRP challenge-response or plain USER_PASSWORD_AUTH) yields the
// id/access/refresh token triple, which is cached and kept renewed, then
// traded through a Cognito identity pool for temporary credentials whose
// expiry is the earlier of the two underlying secrets.
package credentialexchange
