package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hackgods/barbershop-scheduling/internal/booking"
	"github.com/hackgods/barbershop-scheduling/internal/timegrid"
)

func newBarbersCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "barbers",
		Short: "List barbers with their hours",
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			barbers, err := a.svc.ListBarbers(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tHOURS\tBREAK\tID")
			for _, b := range barbers {
				brk := "-"
				if b.BreakTime != nil {
					brk = b.BreakTime.Start.String() + "-" + b.BreakTime.End.String()
				}
				fmt.Fprintf(tw, "%s\t%s-%s\t%s\t%s\n", b.Name, b.WorkingHours.Start, b.WorkingHours.End, brk, b.ID)
			}
			return tw.Flush()
		}),
	}
}

func newServicesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the service catalog",
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			services, err := a.svc.ListServices(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPRICE")
			for _, s := range services {
				fmt.Fprintf(tw, "%s\t%s PKR\n", s.Name, strconv.FormatFloat(s.Price, 'f', -1, 64))
			}
			return tw.Flush()
		}),
	}
}

func newBookCmd(flags *globalFlags) *cobra.Command {
	var req booking.BookingRequest

	c := &cobra.Command{
		Use:   "book",
		Short: "Book an appointment; omit barber, date or time to let the shop choose",
		Example: `  barberctl book --user u1 --barber Ali --date tomorrow --time 3pm
  barberctl book --user u1 --date 2024-06-01
  barberctl book --user u1`,
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			appt, err := a.svc.Book(cmd.Context(), req)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "booked %s with %s on %s at %s (%d min)\n",
				appt.ID, appt.BarberName, appt.Date, appt.Time, appt.Duration())
			return nil
		}),
	}

	c.Flags().StringVar(&req.UserID, "user", "", "customer id")
	c.Flags().StringVar(&req.BarberName, "barber", "", "barber name")
	c.Flags().StringVar(&req.ServiceName, "service", "", "service name")
	c.Flags().StringVar(&req.Date, "date", "", "YYYY-MM-DD, today, tomorrow or a weekday")
	c.Flags().StringVar(&req.Time, "time", "", "HH:MM, 3pm, morning, afternoon or evening")
	c.Flags().IntVar(&req.DurationMinutes, "duration", 0, "minutes (default from shop policy)")
	_ = c.MarkFlagRequired("user")
	return c
}

func newViewCmd(flags *globalFlags) *cobra.Command {
	var userID string

	c := &cobra.Command{
		Use:   "view",
		Short: "Show a customer's appointments",
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			appts, err := a.svc.ViewAppointments(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if len(appts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no appointments")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tTIME\tBARBER\tSTATUS\tID")
			for _, ap := range appts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", ap.Date, ap.Time, ap.BarberName, ap.Status, ap.ID)
			}
			return tw.Flush()
		}),
	}
	c.Flags().StringVar(&userID, "user", "", "customer id")
	_ = c.MarkFlagRequired("user")
	return c
}

func newCancelCmd(flags *globalFlags) *cobra.Command {
	var userID string

	c := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a customer's most recent active appointment",
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			appt, err := a.svc.CancelLatestAppointment(cmd.Context(), userID)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled %s with %s on %s at %s\n", appt.ID, appt.BarberName, appt.Date, appt.Time)
			return nil
		}),
	}
	c.Flags().StringVar(&userID, "user", "", "customer id")
	_ = c.MarkFlagRequired("user")
	return c
}

func newNextSlotCmd(flags *globalFlags) *cobra.Command {
	var duration int

	c := &cobra.Command{
		Use:   "next-slot BARBER",
		Short: "Find a barber's earliest open slot",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, args []string) error {
			b, err := findBarber(cmd, a, args[0])
			if err != nil {
				return err
			}
			slot, ok, err := a.svc.FindNextAvailableSlot(cmd.Context(), b.ID, duration)
			if err != nil {
				return describe(err)
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s has no open slot within %d days\n", b.Name, a.svc.Policy().LookaheadDays)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is next free on %s\n", b.Name, slot)
			return nil
		}),
	}
	c.Flags().IntVar(&duration, "duration", 0, "minutes (default from shop policy)")
	return c
}

func newSuggestCmd(flags *globalFlags) *cobra.Command {
	var (
		date, clock     string
		duration, limit int
	)

	c := &cobra.Command{
		Use:   "suggest BARBER",
		Short: "List open slots near a requested date and time",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, args []string) error {
			b, err := findBarber(cmd, a, args[0])
			if err != nil {
				return err
			}
			start := timegrid.Unset
			if clock != "" {
				if start, err = timegrid.NormalizeTime(clock); err != nil {
					return err
				}
			}
			slots, err := a.svc.SuggestAlternatives(cmd.Context(), b.ID, date, start, duration, limit)
			if err != nil {
				return describe(err)
			}
			if len(slots) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no open slots")
				return nil
			}
			for _, s := range slots {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		}),
	}
	c.Flags().StringVar(&date, "date", "", "YYYY-MM-DD (default today)")
	c.Flags().StringVar(&clock, "time", "", "earliest start to consider")
	c.Flags().IntVar(&duration, "duration", 0, "minutes (default from shop policy)")
	c.Flags().IntVar(&limit, "limit", booking.DefaultSuggestionLimit, "number of slots")
	return c
}

func findBarber(cmd *cobra.Command, a *app, name string) (booking.Barber, error) {
	barbers, err := a.svc.ListBarbers(cmd.Context())
	if err != nil {
		return booking.Barber{}, err
	}
	for _, b := range barbers {
		if strings.EqualFold(b.Name, name) {
			return b, nil
		}
	}
	return booking.Barber{}, fmt.Errorf("unknown barber %q", name)
}

// describe flattens a booking failure into one line with its alternatives.
func describe(err error) error {
	var be *booking.Error
	if !errors.As(err, &be) {
		return err
	}
	msg := fmt.Sprintf("%s (%s", booking.Message(err), be.Kind)
	if be.Reason != booking.ReasonNone {
		msg += ", " + string(be.Reason)
	}
	msg += ")"
	if len(be.Alternatives) > 0 {
		parts := make([]string, 0, len(be.Alternatives))
		for _, s := range be.Alternatives {
			parts = append(parts, s.String())
		}
		msg += "\nnext available: " + strings.Join(parts, ", ")
	}
	return errors.New(msg)
}
