package app

// LiveMessages exposes liveMessages to the external test package.
var LiveMessages = liveMessages
