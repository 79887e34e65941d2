package http

var VerifySlackSignature = verifySlackSignature

var RequestToken = requestToken
