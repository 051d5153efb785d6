package sqlinline

// QUserSelectProfile loads everything generation needs about a user: the
// latest completed identity model, active reference images and brand kit.
const QUserSelectProfile = `--sql c2561453-ee9d-4756-aadf-fd1fd8817fe3
select
    u.id::text,
    coalesce(u.brand_aesthetic, ''),
    coalesce(u.fashion_style, ''),
    coalesce(u.gender, ''),
    coalesce(u.ethnicity, ''),
    coalesce(u.locale_pref, ''),
    coalesce(m.id::text, ''),
    coalesce(m.trigger_word, ''),
    coalesce(m.model_version, ''),
    coalesce(refs.urls, '{}'::text[]),
    b.user_id is not null as has_brand_kit,
    coalesce(b.primary_color, ''),
    coalesce(b.secondary_color, ''),
    coalesce(b.accent_color, ''),
    coalesce(b.tone, '')
from users u
left join lateral (
    select id, trigger_word, model_version
    from user_models
    where user_id = u.id
      and training_status = 'completed'
    order by created_at desc
    limit 1
) m on true
left join lateral (
    select array_agg(image_url order by created_at asc) as urls
    from reference_images
    where user_id = u.id
      and is_active
) refs on true
left join brand_kits b on b.user_id = u.id
where u.id = $1::uuid
limit 1;
`
