package bot

// User-facing bot replies.
const (
	msgShareContact    = "Tap the button below to share your phone number and finish registration."
	msgShareButton     = "Share my phone number"
	msgVerified        = "Your phone number is confirmed. Return to the site, registration will complete automatically."
	msgAlreadyVerified = "This phone number is already confirmed. Return to the site to continue."
	msgPhoneMismatch   = "This phone number does not match the one entered at registration. Share the contact for the same phone number you registered with."
	msgInvalidLink     = "This verification link is invalid or has expired. Start the registration on the site again."
	msgNoConversation  = "Open the verification link from the registration page first, then share your contact."
	msgForeignContact  = "Please share your own contact using the button, not someone else's."
	msgAccountReady    = "Registration is complete, you are signed in on the site."
	msgHelp            = "To confirm your phone number, open the link shown on the registration page."
)
