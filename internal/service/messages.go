package service

import "fmt"

// Outbound message texts.
const (
	msgDriverRegistered      = "You're our new driver"
	msgDriverAlreadyDriver   = "You don't have to register you're already in the system"
	msgDriverAlreadyClient   = "You're already registered as client, you can be a client or a driver not both."
	msgClientRegistered      = "You're our new client"
	msgClientAlreadyClient   = "You're already a member of the system."
	msgClientAlreadyDriver   = "You're already registered as driver, you can be a client or a driver not both."
	msgNotClient             = "You're not a client. Only a client can request a ride."
	msgNotDriver             = "You're not a driver. Only a driver can take a ride."
	msgRequestAccepted       = "The request has been accepted."
	msgNoSuchRide            = "There is no such ride"
	msgRideTaken             = "This ride is already taken, good luck next time"
	msgPickUpClient          = "Go and pick up the client !"
	msgDriverOnTheWay        = "Your driver is on the way!"
	msgNoActiveRide          = "You don't have an active ride."
	msgRequestCanceled       = "Request has been canceled"
	msgAlreadyRated          = "You have already rated last ride"
	msgInvalidScore          = "Rate your last ride with a number from 1 to 5."
	msgLocationUnknownSuffix = " (we could not determine the location)"

	// LocationSubject is the subject line of location messages.
	LocationSubject = "Current location"
)

func msgRideBroadcast(rideNumber int64) string {
	return fmt.Sprintf("A new submission has occurred with number: %d respond to the message and type 'take:%d' to accept request.", rideNumber, rideNumber)
}

func msgRated(score int) string {
	return fmt.Sprintf("You have rated last ride on: %d", score)
}

func msgRatedByClient(score int) string {
	return fmt.Sprintf("Client rated your last ride on: %d", score)
}

func msgRatedByDriver(score int) string {
	return fmt.Sprintf("Driver rated your last ride on: %d", score)
}

// HelpText describes the commands accepted on serviceNumber.
func HelpText(serviceNumber string) string {
	return "Clients and drivers can send SMSs to " + serviceNumber + " with the following commands\n" +
		"\"register-driver\" register number as a driver\n" +
		"\"register-client\" register number as a client\n" +
		"\"ride-request\" create ride request\n" +
		"\"take:RIDE_NUMBER\" take ride request\n" +
		"\"stop\" stop the ride\n" +
		"\"rate:[1-5]\" rate last ride from 1 to 5\n"
}
