package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"smsride/internal/domain"
	"smsride/internal/repository"
)

const (
	defaultLocationTimeout      = 30 * time.Second
	defaultBroadcastConcurrency = 8
)

// DispatchOptions tunes the dispatch engine.
type DispatchOptions struct {
	LocationTimeout      time.Duration // Optional: 0 uses default
	BroadcastConcurrency int           // Optional: 0 uses default
}

// Outcome is the result of handling one command.
type Outcome struct {
	Command CommandKind
	Ride    *domain.Ride // ride created or changed, if any
	Err     error        // rejection or infrastructure error; nil on success
}

// DispatchService interprets SMS commands: it registers participants, moves
// rides through their lifecycle and notifies the parties involved.
//
// Location-annotated follow-ups run as tasks on the service's own lifetime
// context, so they outlive the request that triggered them. Wait blocks
// until they are done and Close cancels the outstanding lookups.
type DispatchService struct {
	directory repository.Directory
	rides     repository.RideLedger
	notifier  *NotificationService
	locator   LocationProvider
	opts      DispatchOptions

	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup
}

// NewDispatchService creates a new DispatchService.
func NewDispatchService(
	directory repository.Directory,
	rides repository.RideLedger,
	notifier *NotificationService,
	locator LocationProvider,
	opts DispatchOptions,
) *DispatchService {
	if opts.LocationTimeout <= 0 {
		opts.LocationTimeout = defaultLocationTimeout
	}
	if opts.BroadcastConcurrency <= 0 {
		opts.BroadcastConcurrency = defaultBroadcastConcurrency
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &DispatchService{
		directory: directory,
		rides:     rides,
		notifier:  notifier,
		locator:   locator,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// HandleMessage parses text and handles the resulting command.
func (s *DispatchService) HandleMessage(ctx context.Context, sender, text string) Outcome {
	log.Printf("[DISPATCH] Received message from %s: %q", sender, text)
	return s.Handle(ctx, sender, ParseCommand(text))
}

// Handle applies cmd on behalf of sender. Rejections are reported to the
// sender with a single notification and never change state.
func (s *DispatchService) Handle(ctx context.Context, sender string, cmd Command) Outcome {
	commandsTotal.WithLabelValues(string(cmd.Kind)).Inc()

	var out Outcome
	switch cmd.Kind {
	case CommandRegisterDriver:
		out = s.registerDriver(ctx, sender)
	case CommandRegisterClient:
		out = s.registerClient(ctx, sender)
	case CommandRideRequest:
		out = s.requestRide(ctx, sender)
	case CommandTakeRide:
		out = s.takeRide(ctx, sender, cmd.RideNumber)
	case CommandStop:
		out = s.stop(ctx, sender)
	case CommandRate:
		out = s.rate(ctx, sender, cmd.Score)
	default:
		// Unmatched text is ignored without a reply.
		return Outcome{Command: CommandUnrecognized}
	}

	out.Command = cmd.Kind
	if out.Err != nil {
		rejectionsTotal.WithLabelValues(string(cmd.Kind), reason(out.Err)).Inc()
		log.Printf("[DISPATCH] %s from %s rejected: %v", cmd.Kind, sender, out.Err)
	}
	return out
}

func (s *DispatchService) registerDriver(ctx context.Context, sender string) Outcome {
	_, err := s.directory.RegisterDriver(ctx, sender)
	switch {
	case errors.Is(err, repository.ErrAlreadyDriver):
		s.notifier.SendText(ctx, sender, msgDriverAlreadyDriver)
		return Outcome{Err: err}
	case errors.Is(err, repository.ErrAlreadyClient):
		s.notifier.SendText(ctx, sender, msgDriverAlreadyClient)
		return Outcome{Err: err}
	case err != nil:
		return Outcome{Err: err}
	}

	log.Printf("[DISPATCH] Added driver with number: %s", sender)
	s.notifier.SendText(ctx, sender, msgDriverRegistered)
	return Outcome{}
}

func (s *DispatchService) registerClient(ctx context.Context, sender string) Outcome {
	_, err := s.directory.RegisterClient(ctx, sender)
	switch {
	case errors.Is(err, repository.ErrAlreadyClient):
		s.notifier.SendText(ctx, sender, msgClientAlreadyClient)
		return Outcome{Err: err}
	case errors.Is(err, repository.ErrAlreadyDriver):
		s.notifier.SendText(ctx, sender, msgClientAlreadyDriver)
		return Outcome{Err: err}
	case err != nil:
		return Outcome{Err: err}
	}

	log.Printf("[DISPATCH] Added client with number: %s", sender)
	s.notifier.SendText(ctx, sender, msgClientRegistered)
	return Outcome{}
}

func (s *DispatchService) requestRide(ctx context.Context, sender string) Outcome {
	if _, err := s.directory.GetClient(ctx, sender); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.notifier.SendText(ctx, sender, msgNotClient)
			return Outcome{Err: ErrNotClient}
		}
		return Outcome{Err: err}
	}

	ride, err := s.rides.Create(ctx, sender)
	if err != nil {
		return Outcome{Err: err}
	}
	s.notifier.SendText(ctx, sender, msgRequestAccepted)

	rideNumber := ride.Number
	s.followUp(sender, func(ctx context.Context, loc domain.Location, found bool) {
		s.notifier.SendLocated(ctx, sender, msgRequestAccepted, loc, found)
		s.broadcast(ctx, rideNumber, loc, found)
	})

	return Outcome{Ride: ride}
}

// broadcast offers the ride to every registered driver.
func (s *DispatchService) broadcast(ctx context.Context, rideNumber int64, loc domain.Location, found bool) {
	drivers, err := s.directory.ListDrivers(ctx)
	if err != nil {
		log.Printf("[DISPATCH] failed to list drivers for ride %d: %v", rideNumber, err)
		return
	}

	text := msgRideBroadcast(rideNumber)
	g := new(errgroup.Group)
	g.SetLimit(s.opts.BroadcastConcurrency)
	for _, driver := range drivers {
		to := driver.PhoneNumber
		g.Go(func() error {
			s.notifier.SendLocated(ctx, to, text, loc, found)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *DispatchService) takeRide(ctx context.Context, sender string, rideNumber int64) Outcome {
	ride, err := s.rides.GetByNumber(ctx, rideNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.notifier.SendText(ctx, sender, msgNoSuchRide)
		}
		return Outcome{Err: err}
	}

	if ride.Active || ride.HasDriver() {
		s.notifier.SendText(ctx, sender, msgRideTaken)
		return Outcome{Ride: ride, Err: repository.ErrRideAlreadyTaken}
	}

	if _, err := s.directory.GetDriver(ctx, sender); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.notifier.SendText(ctx, sender, msgNotDriver)
			return Outcome{Ride: ride, Err: ErrNotDriver}
		}
		return Outcome{Err: err}
	}

	ride, err = s.rides.Claim(ctx, rideNumber, sender)
	if err != nil {
		if errors.Is(err, repository.ErrRideAlreadyTaken) {
			s.notifier.SendText(ctx, sender, msgRideTaken)
		}
		return Outcome{Err: err}
	}
	log.Printf("[DISPATCH] Ride %d taken: driver=%s client=%s", ride.Number, ride.DriverNumber, ride.ClientNumber)

	client, driver := ride.ClientNumber, ride.DriverNumber
	s.followUp(client, func(ctx context.Context, loc domain.Location, found bool) {
		s.notifier.SendLocated(ctx, driver, msgPickUpClient, loc, found)
	})
	s.followUp(driver, func(ctx context.Context, loc domain.Location, found bool) {
		s.notifier.SendLocated(ctx, client, msgDriverOnTheWay, loc, found)
	})

	return Outcome{Ride: ride}
}

func (s *DispatchService) stop(ctx context.Context, sender string) Outcome {
	ride, err := s.rides.ActiveFor(ctx, sender)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.notifier.SendText(ctx, sender, msgNoActiveRide)
			return Outcome{Err: ErrNoActiveRide}
		}
		return Outcome{Err: err}
	}

	ride, err = s.rides.Finish(ctx, ride.Number)
	if err != nil {
		if errors.Is(err, repository.ErrRideNotActive) {
			// Stopped concurrently by the other party.
			return Outcome{}
		}
		return Outcome{Err: err}
	}

	s.notifier.SendText(ctx, ride.DriverNumber, msgRequestCanceled)
	s.notifier.SendText(ctx, ride.ClientNumber, msgRequestCanceled)
	return Outcome{Ride: ride}
}

func (s *DispatchService) rate(ctx context.Context, sender string, score int) Outcome {
	if score < MinScore || score > MaxScore {
		s.notifier.SendText(ctx, sender, msgInvalidScore)
		return Outcome{Err: ErrInvalidScore}
	}

	ride, err := s.rides.LastForClient(ctx, sender)
	if err == nil {
		return s.rateAs(ctx, sender, ride, domain.RoleClient, score)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return Outcome{Err: err}
	}

	ride, err = s.rides.LastForDriver(ctx, sender)
	if err == nil {
		return s.rateAs(ctx, sender, ride, domain.RoleDriver, score)
	}
	if errors.Is(err, repository.ErrNotFound) {
		s.notifier.SendText(ctx, sender, msgNoSuchRide)
	}
	return Outcome{Err: err}
}

func (s *DispatchService) rateAs(ctx context.Context, sender string, ride *domain.Ride, role domain.Role, score int) Outcome {
	if !ride.HasDriver() {
		s.notifier.SendText(ctx, sender, msgNoSuchRide)
		return Outcome{Ride: ride, Err: ErrRideNotTaken}
	}

	rated, err := s.rides.MarkRated(ctx, ride.Number, role)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyRated) {
			s.notifier.SendText(ctx, sender, msgAlreadyRated)
			return Outcome{Ride: ride, Err: err}
		}
		return Outcome{Err: err}
	}

	s.notifier.SendText(ctx, sender, msgRated(score))
	if role == domain.RoleClient {
		s.notifier.SendText(ctx, rated.DriverNumber, msgRatedByClient(score))
	} else {
		s.notifier.SendText(ctx, rated.ClientNumber, msgRatedByDriver(score))
	}
	return Outcome{Ride: rated}
}

// followUp looks up the location of subject in the background and passes it
// to deliver. found is false when the lookup failed or timed out.
func (s *DispatchService) followUp(subject string, deliver func(ctx context.Context, loc domain.Location, found bool)) {
	s.tasks.Add(1)
	pendingFollowUps.Inc()

	go func() {
		defer s.tasks.Done()
		defer pendingFollowUps.Dec()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[DISPATCH] follow-up for %s panicked: %v", subject, r)
			}
		}()

		loc, err := s.locate(subject)
		// Delivery outlives Close so fallback texts still go out.
		deliver(context.WithoutCancel(s.ctx), loc, err == nil)
	}()
}

func (s *DispatchService) locate(subject string) (domain.Location, error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.opts.LocationTimeout)
	defer cancel()

	loc, err := s.locator.RequestLocation(ctx, subject)
	if err != nil {
		locationLookupsTotal.WithLabelValues("failed").Inc()
		log.Printf("[DISPATCH] could not locate %s: %v", subject, err)
		return domain.Location{}, err
	}
	locationLookupsTotal.WithLabelValues("found").Inc()
	return loc, nil
}

// Wait blocks until all follow-up tasks have finished.
func (s *DispatchService) Wait() {
	s.tasks.Wait()
}

// Close cancels pending location lookups and waits for their fallback
// notifications to be sent.
func (s *DispatchService) Close() {
	s.cancel()
	s.tasks.Wait()
}

// reason maps an outcome error to a metrics label.
func reason(err error) string {
	switch {
	case errors.Is(err, repository.ErrAlreadyClient),
		errors.Is(err, repository.ErrAlreadyDriver):
		return "role_conflict"
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, ErrNotClient),
		errors.Is(err, ErrNotDriver),
		errors.Is(err, ErrNoActiveRide),
		errors.Is(err, ErrRideNotTaken):
		return "unknown_entity"
	case errors.Is(err, repository.ErrRideAlreadyTaken):
		return "already_taken"
	case errors.Is(err, repository.ErrAlreadyRated):
		return "already_rated"
	case errors.Is(err, ErrInvalidScore):
		return "invalid_score"
	default:
		return "internal"
	}
}
