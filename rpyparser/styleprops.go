package rpyparser

// styleProperties holds every recognized style property name, built from
// the base property list crossed with the state prefixes.
var styleProperties = buildStyleProperties()

var stylePrefixes = []string{
	"",
	"hover_",
	"idle_",
	"insensitive_",
	"activate_",
	"selected_",
	"selected_hover_",
	"selected_idle_",
	"selected_insensitive_",
	"selected_activate_",
}

var styleBaseProperties = []string{
	"activate_sound",
	"adjust_spacing",
	"aft_bar",
	"aft_gutter",
	"align",
	"alt",
	"altruby_style",
	"anchor",
	"antialias",
	"area",
	"axis",
	"background",
	"bar_invert",
	"bar_resizing",
	"bar_vertical",
	"base_bar",
	"black_color",
	"bold",
	"bottom_bar",
	"bottom_gutter",
	"bottom_margin",
	"bottom_padding",
	"box_first_spacing",
	"box_layout",
	"box_reverse",
	"box_spacing",
	"box_wrap",
	"box_wrap_spacing",
	"caret",
	"child",
	"clipping",
	"color",
	"debug",
	"drop_shadow",
	"drop_shadow_color",
	"emoji_font",
	"enable_hover",
	"extra_alt",
	"first_indent",
	"first_spacing",
	"fit_first",
	"focus_mask",
	"focus_rect",
	"font",
	"fore_bar",
	"fore_gutter",
	"foreground",
	"group_alt",
	"hinting",
	"hover_sound",
	"hyperlink_functions",
	"instance",
	"italic",
	"justify",
	"kerning",
	"key_events",
	"keyboard_focus",
	"language",
	"layout",
	"left_bar",
	"left_gutter",
	"left_margin",
	"left_padding",
	"line_leading",
	"line_overlap_split",
	"line_spacing",
	"margin",
	"maximum",
	"min_width",
	"minimum",
	"minwidth",
	"mipmap",
	"modal",
	"mouse",
	"newline_indent",
	"offset",
	"order_reverse",
	"outline_scaling",
	"outlines",
	"padding",
	"pos",
	"prefer_emoji",
	"rest_indent",
	"right_bar",
	"right_gutter",
	"right_margin",
	"right_padding",
	"ruby_line_leading",
	"ruby_style",
	"shaper",
	"size",
	"size_group",
	"slow_abortable",
	"slow_cps",
	"slow_cps_multiplier",
	"slow_speed",
	"spacing",
	"strikethrough",
	"subpixel",
	"subtitle_width",
	"text_align",
	"text_y_fudge",
	"textalign",
	"thumb",
	"thumb_offset",
	"thumb_shadow",
	"time_policy",
	"top_bar",
	"top_gutter",
	"top_margin",
	"top_padding",
	"underline",
	"unscrollable",
	"vertical",
	"xalign",
	"xanchor",
	"xcenter",
	"xfill",
	"xfit",
	"xmargin",
	"xmaximum",
	"xminimum",
	"xoffset",
	"xpadding",
	"xpos",
	"xsize",
	"xspacing",
	"xycenter",
	"xysize",
	"yalign",
	"yanchor",
	"ycenter",
	"yfill",
	"yfit",
	"ymargin",
	"ymaximum",
	"yminimum",
	"yoffset",
	"ypadding",
	"ypos",
	"ysize",
	"yspacing",
}

func buildStyleProperties() map[string]bool {
	props := make(map[string]bool, len(stylePrefixes)*len(styleBaseProperties))
	for _, prefix := range stylePrefixes {
		for _, base := range styleBaseProperties {
			props[prefix+base] = true
		}
	}
	return props
}

// isStyleProperty reports whether name is a recognized style property.
func isStyleProperty(name string) bool {
	return styleProperties[name]
}
